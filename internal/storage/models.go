package storage

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    int64
}

type Expense struct {
	ID          int64
	UserID      int64
	AmountCents int64
	Category    string
	Description string
	Date        string
	CreatedAt   int64
	UpdatedAt   int64
}

type Limit struct {
	ID         int64
	UserID     int64
	Category   string
	LimitCents int64
}

type Session struct {
	Token     string
	UserID    int64
	Username  string
	CreatedAt int64
	ExpiresAt int64
}
