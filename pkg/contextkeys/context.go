package contextkeys

// Кастомный тип ключа, чтобы избежать коллизий в context
type contextKey string

// DBContextKey - ключ, по которому хранится *gorm.DB в context
// (middleware кладет, хэндлеры достают; тесты подменяют на транзакцию)
const DBContextKey = contextKey("db")
