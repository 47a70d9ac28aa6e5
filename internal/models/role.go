package models

type Role string

const (
	Admin     Role = "admin"
	Resident  Role = "resident"
	Attending Role = "attending"
)

// Actor — аутентифицированный пользователь запроса. Сессии выдаёт внешний
// слой, сюда приходит уже проверенная пара id+роль.
type Actor struct {
	ID   int64
	Role Role
}

type SignTarget string

const (
	TargetResident  SignTarget = "resident"
	TargetAttending SignTarget = "attending"
)

// CanSign — единственная точка проверки прав на подпись: admin может всё,
// resident/attending — только свою графу в «своём» исследовании.
func CanSign(actor Actor, study *StudyDetail, target SignTarget) bool {
	if actor.Role == Admin {
		return true
	}
	switch target {
	case TargetResident:
		return actor.Role == Resident && study.ResidentID != nil && *study.ResidentID == actor.ID
	case TargetAttending:
		return actor.Role == Attending && study.AttendingID != nil && *study.AttendingID == actor.ID
	}
	return false
}
