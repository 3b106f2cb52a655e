package profile

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS SOURCE
// Внешний источник статистики. Реализация - infrastructure/external/leetcode.
// ══════════════════════════════════════════════════════════════════════════════

// Outcome - исход одного запроса к источнику.
type Outcome string

const (
	OutcomeFound    Outcome = "found"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailed   Outcome = "failed"
)

// FailureReason - машинно-читаемая причина неудачного запроса.
type FailureReason string

const (
	ReasonNone        FailureReason = ""
	ReasonTimeout     FailureReason = "timeout"
	ReasonCanceled    FailureReason = "canceled"
	ReasonServerError FailureReason = "server_error"
	ReasonRateLimited FailureReason = "rate_limited"
	ReasonHTTPStatus  FailureReason = "http_status"
	ReasonNetwork     FailureReason = "network"
	ReasonDecode      FailureReason = "decode"
)

// FetchResult - результат одного запроса. Stats заполнен только при
// OutcomeFound, Reason и Err - только при OutcomeFailed.
// "Не найден" - это не ошибка, а отдельный исход.
type FetchResult struct {
	Username string
	Outcome  Outcome
	Stats    Stats
	Reason   FailureReason
	Err      error
	Duration time.Duration
}

// Source - контракт внешнего источника статистики.
type Source interface {
	// Fetch делает ровно одну попытку с жёстким таймаутом и никогда не
	// возвращает ошибку: любой исход описывается FetchResult.
	Fetch(ctx context.Context, username string) FetchResult

	// Validate - вариант для интерактивной проверки профиля с повторами
	// при временных сбоях. Возвращает человеко-читаемые ошибки
	// shared.ErrProfileNotFound или shared.ErrProfileVerificationFailed.
	Validate(ctx context.Context, username string) (*Stats, error)
}
