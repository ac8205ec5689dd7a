package models

// Identity - нормализованная проекция идентичности из одной из двух
// коллекций (Account или Student). Резолвится один раз на границе
// (auth middleware, ws handshake) и передается внутрь ядра; компоненты
// ниже не делают повторных двойных lookup'ов.
type Identity struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"displayName"`
	Role        UserRole      `json:"role"`
	Tag         CollectionTag `json:"collectionTag"`
	PushEnabled bool          `json:"-"`
}

// IdentityFromUser строит проекцию из staff-аккаунта.
func IdentityFromUser(u *User) *Identity {
	return &Identity{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		Tag:         TagAccount,
		PushEnabled: u.PushEnabled,
	}
}

// IdentityFromStudent строит проекцию из аккаунта студента.
func IdentityFromStudent(s *Student) *Identity {
	return &Identity{
		ID:          s.ID,
		DisplayName: s.DisplayName,
		Role:        RoleStudent,
		Tag:         TagStudent,
		PushEnabled: s.PushEnabled,
	}
}

// IsStaff сообщает, относится ли идентичность к staff-коллекции.
func (i *Identity) IsStaff() bool {
	return i.Tag == TagAccount
}
