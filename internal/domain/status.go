package domain

import "strings"

// ApplicationStatus — статус рассмотрения заявки.
//
// Жизненный цикл:
//
//	pending → approved
//	        ↘ rejected
//
// Администратор может изменить решение: повторный approve снова ставит
// задачу на генерацию документа.
type ApplicationStatus string

const (
	// ApplicationStatusPending — заявка ожидает рассмотрения.
	ApplicationStatusPending ApplicationStatus = "pending"

	// ApplicationStatusApproved — заявка одобрена, документ генерируется воркером.
	ApplicationStatusApproved ApplicationStatus = "approved"

	// ApplicationStatusRejected — заявка отклонена.
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Valid проверяет, что статус известен.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusApproved, ApplicationStatusRejected:
		return true
	default:
		return false
	}
}

// IDType — тип документа, удостоверяющего личность.
type IDType string

const (
	IDTypePassport       IDType = "passport"
	IDTypeDrivingLicense IDType = "driving_license"
	IDTypeNationalID     IDType = "national_id"
)

// Valid проверяет, что тип документа известен.
func (t IDType) Valid() bool {
	switch t {
	case IDTypePassport, IDTypeDrivingLicense, IDTypeNationalID:
		return true
	default:
		return false
	}
}

// Label возвращает название типа для печати: "driving_license" → "DRIVING LICENSE".
func (t IDType) Label() string {
	return strings.ToUpper(strings.ReplaceAll(string(t), "_", " "))
}

// DocumentState — состояние документа заявки, которое видит клиент.
type DocumentState string

const (
	// DocumentStateNotApproved — заявка ещё не одобрена.
	DocumentStateNotApproved DocumentState = "not_approved"

	// DocumentStatePending — заявка одобрена, документ ещё генерируется.
	DocumentStatePending DocumentState = "pending"

	// DocumentStateComplete — документ готов.
	DocumentStateComplete DocumentState = "complete"
)
