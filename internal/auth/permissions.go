package auth

import "mentorhub_backend/internal/models"

// PairVerdict - вердикт по неупорядоченной паре ролей.
type PairVerdict int

const (
	// PairDenied - пара не может переписываться ни при каких условиях.
	PairDenied PairVerdict = iota
	// PairAllowed - пара в allow-list, переписка разрешена.
	PairAllowed
	// PairNeedsApproval - пара {reviewer, student}: переписка разрешена
	// только при наличии одобренного ChatRequest для конкретных id.
	PairNeedsApproval
)

type rolePair struct {
	a, b models.UserRole
}

// Allow-list неупорядоченных пар ролей. Admin - надзорная роль и может
// переписываться со всеми остальными ролями; одинаковые роли между
// собой не переписываются.
var allowedPairs = map[rolePair]struct{}{
	normalizePair(models.RoleAdvisor, models.RoleStudent):  {},
	normalizePair(models.RoleAdvisor, models.RoleReviewer): {},
	normalizePair(models.RoleAdmin, models.RoleAdvisor):    {},
	normalizePair(models.RoleAdmin, models.RoleReviewer):   {},
	normalizePair(models.RoleAdmin, models.RoleStudent):    {},
}

var approvalPair = normalizePair(models.RoleReviewer, models.RoleStudent)

func normalizePair(a, b models.UserRole) rolePair {
	if a > b {
		a, b = b, a
	}
	return rolePair{a: a, b: b}
}

// CheckRolePair возвращает вердикт для неупорядоченной пары ролей.
// Порядок аргументов не важен. Это чистая часть движка разрешений;
// проверку одобренного запроса для PairNeedsApproval делает вызывающий.
func CheckRolePair(a, b models.UserRole) PairVerdict {
	pair := normalizePair(a, b)
	if _, ok := allowedPairs[pair]; ok {
		return PairAllowed
	}
	if pair == approvalPair {
		return PairNeedsApproval
	}
	return PairDenied
}

// ValidStaffRole проверяет, что роль относится к staff-коллекции.
func ValidStaffRole(role models.UserRole) bool {
	switch role {
	case models.RoleAdmin, models.RoleAdvisor, models.RoleReviewer:
		return true
	}
	return false
}
