package models

// Роли пользователей, проверяются middleware по claim из токена
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User представляет пользователя магазина
type User struct {
	ID       int64
	Email    string
	PassHash []byte
	Role     string
}
