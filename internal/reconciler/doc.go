// Package reconciler восстанавливает потерянные задачи генерации документов.
//
// Если публикация при одобрении не удалась (брокер недоступен), заявка
// остаётся одобренной без документа. Reconciler по расписанию находит такие
// заявки и публикует задачи повторно.
package reconciler
