package lens

import "errors"

var (
	// ErrEligibilityRejected — кандидат не прошёл правила выбора цели. Пользователю не показывается.
	ErrEligibilityRejected = errors.New("lens: eligibility rejected")
	// ErrStaleTarget — элемент исчез из документа между запросом и применением. Тихий no-op.
	ErrStaleTarget = errors.New("lens: target is no longer attached")
	// ErrNothingToUndo — слот отмены пуст. Сообщается как информационное уведомление.
	ErrNothingToUndo = errors.New("lens: nothing to undo")
	// ErrBusy — идёт перевод, операция отклонена (не ставится в очередь).
	ErrBusy = errors.New("lens: translation in progress")
	// ErrNotMounted — контроллер не смонтирован, событие или правка не приняты.
	ErrNotMounted = errors.New("lens: controller not mounted")
)
