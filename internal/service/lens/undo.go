package lens

import (
	"LinguaLens/internal/dom"
	"LinguaLens/internal/service/notify"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// MutationKind — причина изменения текста элемента.
type MutationKind string

const (
	MutationTranslate MutationKind = "translate"
	MutationUndo      MutationKind = "undo"
)

// Mutation сообщает хосту, что отображаемый текст элемента изменился.
type Mutation struct {
	Kind    MutationKind
	Element *html.Node
	Text    string
}

// UndoRecord — элемент и его текст до перевода.
type UndoRecord struct {
	Element      *html.Node
	OriginalText string
}

// UndoSlot хранит не больше одной записи отмены.
type UndoSlot struct {
	doc      *dom.Document
	notifier notify.Notifier
	logger   *zap.SugaredLogger
	busy     func() bool
	onMutate func(Mutation)

	rec *UndoRecord
}

func NewUndoSlot(doc *dom.Document, notifier notify.Notifier, logger *zap.SugaredLogger, busy func() bool, onMutate func(Mutation)) *UndoSlot {
	return &UndoSlot{doc: doc, notifier: notifier, logger: logger, busy: busy, onMutate: onMutate}
}

// Write безусловно перезаписывает слот.
func (u *UndoSlot) Write(el *html.Node, originalText string) {
	u.rec = &UndoRecord{Element: el, OriginalText: originalText}
}

func (u *UndoSlot) Peek() (UndoRecord, bool) {
	if u.rec == nil {
		return UndoRecord{}, false
	}
	return *u.rec, true
}

func (u *UndoSlot) Clear() { u.rec = nil }

// DropDetached забывает запись, если её элемент больше не в документе.
func (u *UndoSlot) DropDetached() bool {
	if u.rec != nil && !u.doc.Attached(u.rec.Element) {
		u.rec = nil
		return true
	}
	return false
}

// Consume возвращает исходный текст и очищает слот.
// Пока идёт перевод, отклоняется с ErrBusy без уведомления.
func (u *UndoSlot) Consume() error {
	if u.busy != nil && u.busy() {
		u.logger.Debugw("Undo rejected: translation in progress")
		return ErrBusy
	}
	u.DropDetached()
	if u.rec == nil {
		u.notifier.Notify(notify.Notification{
			Kind:    notify.KindInfo,
			Title:   "Nothing to undo",
			Message: "There is no translation to revert.",
		})
		return ErrNothingToUndo
	}
	rec := *u.rec
	u.rec = nil
	dom.SetText(rec.Element, rec.OriginalText)
	if u.onMutate != nil {
		u.onMutate(Mutation{Kind: MutationUndo, Element: rec.Element, Text: rec.OriginalText})
	}
	u.logger.Infow("Translation reverted")
	u.notifier.Notify(notify.Notification{
		Kind:    notify.KindSuccess,
		Title:   "Translation Reverted",
		Message: "The original text has been restored.",
	})
	return nil
}

// Applier записывает перевод в элемент и сохраняет прежний текст в слот отмены.
type Applier struct {
	doc      *dom.Document
	undo     *UndoSlot
	onMutate func(Mutation)
}

func NewApplier(doc *dom.Document, undo *UndoSlot, onMutate func(Mutation)) *Applier {
	return &Applier{doc: doc, undo: undo, onMutate: onMutate}
}

// Apply захватывает текущий текст элемента, затем заменяет его.
// Отсоединённый элемент — ErrStaleTarget, запись отмены не создаётся.
func (a *Applier) Apply(el *html.Node, newText string) error {
	if el == nil || !a.doc.Attached(el) {
		return ErrStaleTarget
	}
	original := dom.TextContent(el)
	dom.SetText(el, newText)
	a.undo.Write(el, original)
	if a.onMutate != nil {
		a.onMutate(Mutation{Kind: MutationTranslate, Element: el, Text: newText})
	}
	return nil
}
