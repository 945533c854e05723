package models

import "time"

type CreateSessionRequest struct {
	Amount             int64             `json:"amount" validate:"required,gt=0"`
	CallbackURL        string            `json:"callbackUrl,omitempty" validate:"omitempty,url"`
	FailureCallbackURL string            `json:"failureCallbackUrl,omitempty" validate:"omitempty,url"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

type CreateSessionResponse struct {
	TransactionID string    `json:"transactionId"`
	PayURL        string    `json:"payUrl"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

type PaymentSubmission struct {
	Phone string `json:"phone"`
	Pin   string `json:"pin"`
}

type TopupRequest struct {
	Phone  string `json:"phone" validate:"required"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

type TopupResponse struct {
	Balance       int64  `json:"balance"`
	TransactionID string `json:"transactionId"`
	Amount        int64  `json:"amount"`
}

type CreateUserRequest struct {
	Phone          string `json:"phone" validate:"required"`
	Pin            string `json:"pin" validate:"required"`
	Name           string `json:"name,omitempty" validate:"max=100"`
	InitialBalance int64  `json:"initialBalance" validate:"gte=0"`
}

type UserResponse struct {
	UserID    string    `json:"userId"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		UserID:    u.ID,
		Phone:     u.Phone,
		Name:      u.Name,
		Balance:   u.Balance,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type BalanceResponse struct {
	UserID  string `json:"userId"`
	Balance int64  `json:"balance"`
}

type LoginRequest struct {
	Phone string `json:"phone" validate:"required"`
	Pin   string `json:"pin" validate:"required"`
}

type LoginResponse struct {
	SessionToken string    `json:"sessionToken"`
	UserID       string    `json:"userId"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type LogoutRequest struct {
	SessionToken string `json:"sessionToken" validate:"required"`
}

type TransactionView struct {
	TransactionID   string          `json:"transactionId"`
	Type            TransactionType `json:"type"`
	Amount          int64           `json:"amount"`
	Status          string          `json:"status"`
	PreviousBalance int64           `json:"previousBalance"`
	NewBalance      int64           `json:"newBalance"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func NewTransactionView(t *Transaction) TransactionView {
	return TransactionView{
		TransactionID:   t.Reference,
		Type:            t.Type,
		Amount:          t.Amount,
		Status:          t.Status,
		PreviousBalance: t.PreviousBalance,
		NewBalance:      t.NewBalance,
		CompletedAt:     t.CompletedAt,
		CreatedAt:       t.CreatedAt,
	}
}

type PaySessionView struct {
	TransactionID     string        `json:"transactionId"`
	Status            SessionStatus `json:"status"`
	CallbackURL       string        `json:"callbackUrl"`
	CallbackDelivered bool          `json:"callbackDelivered"`
	CallbackAttempts  int           `json:"callbackAttempts"`
	WalletTxRef       *string       `json:"walletTxRef"`
	ExpiresAt         time.Time     `json:"expiresAt"`
	FailureReason     *string       `json:"failureReason"`
}

func NewPaySessionView(s *PaySession) *PaySessionView {
	if s == nil {
		return nil
	}
	return &PaySessionView{
		TransactionID:     s.TransactionID,
		Status:            s.Status,
		CallbackURL:       s.CallbackURL,
		CallbackDelivered: s.CallbackDelivered,
		CallbackAttempts:  s.CallbackAttempts,
		WalletTxRef:       s.WalletTxRef,
		ExpiresAt:         s.ExpiresAt,
		FailureReason:     s.FailureReason,
	}
}

type TransactionDetailResponse struct {
	Transaction TransactionView `json:"transaction"`
	PaySession  *PaySessionView `json:"paySession"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type TransactionListResponse struct {
	Transactions []TransactionView `json:"transactions"`
	Pagination   Pagination        `json:"pagination"`
}

type TypeStats struct {
	Count       int   `json:"count"`
	TotalAmount int64 `json:"totalAmount"`
}

type TransactionStatsResponse struct {
	Stats             map[TransactionType]TypeStats `json:"stats"`
	SuccessRate       float64                       `json:"successRate"`
	TotalTransactions int                           `json:"totalTransactions"`
}

// TransactionFilter narrows a user's transaction history.
type TransactionFilter struct {
	Type   TransactionType
	Status string
}
