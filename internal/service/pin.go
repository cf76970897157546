package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/auth247/pin-server-go/internal/audit"
	"github.com/auth247/pin-server-go/internal/clock"
	apperrors "github.com/auth247/pin-server-go/internal/errors"
	"github.com/auth247/pin-server-go/internal/model"
	"github.com/auth247/pin-server-go/internal/repository"
	"github.com/auth247/pin-server-go/internal/util"
)

// UserDirectory resolves a user id to contact details. A nil user with a nil
// error means the user is unknown.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*model.DirectoryUser, error)
}

// CodeSender delivers a code to a recipient.
type CodeSender interface {
	Send(ctx context.Context, address, name, code string) error
}

type PinOptions struct {
	CodeLength      int
	TTL             time.Duration
	MaxAttempts     int
	IssueLimit      int
	IssueWindow     time.Duration
	DeliveryTimeout time.Duration
	HashSecret      string
}

func DefaultPinOptions() PinOptions {
	return PinOptions{
		CodeLength:      5,
		TTL:             10 * time.Minute,
		MaxAttempts:     3,
		IssueLimit:      5,
		IssueWindow:     time.Hour,
		DeliveryTimeout: 10 * time.Second,
	}
}

// IssueResult is the outcome of IssueCode. On failure only Reason (and
// RetryAfter for RateLimited) is set.
type IssueResult struct {
	Success          bool                `json:"success"`
	DeliveryOK       bool                `json:"deliveryOk"`
	ExpiresInSeconds int                 `json:"expiresInSeconds"`
	Reason           apperrors.ErrorCode `json:"reason,omitempty"`
	RetryAfter       time.Duration       `json:"-"`
}

type ValidateResult struct {
	Success           bool                `json:"success"`
	Reason            apperrors.ErrorCode `json:"reason,omitempty"`
	RemainingAttempts *int                `json:"remainingAttempts,omitempty"`
}

// PinService issues single-use numeric codes and verifies them against
// expiry and attempt limits. Expected outcomes are reported in the result;
// returned errors are infrastructure failures.
type PinService struct {
	store     repository.PinRepository
	directory UserDirectory
	sender    CodeSender
	limiter   Limiter
	clock     clock.Clock
	opts      PinOptions
}

func NewPinService(
	store repository.PinRepository,
	directory UserDirectory,
	sender CodeSender,
	limiter Limiter,
	clk clock.Clock,
	opts PinOptions,
) *PinService {
	return &PinService{
		store:     store,
		directory: directory,
		sender:    sender,
		limiter:   limiter,
		clock:     clk,
		opts:      opts,
	}
}

func issueLimitKey(userID string) string {
	return "pin_issue:" + userID
}

func (s *PinService) IssueCode(ctx context.Context, userID string) (*IssueResult, error) {
	user, err := s.directory.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return &IssueResult{Reason: apperrors.ErrCodeUnknownUser}, nil
	}

	allowed, resetAt := s.limiter.CheckLimit(ctx, issueLimitKey(userID), s.opts.IssueLimit, s.opts.IssueWindow)
	if !allowed {
		audit.Log(ctx, audit.Event{
			Type:    audit.EventRateLimitExceed,
			UserID:  userID,
			Details: map[string]interface{}{"scope": "pin_issue"},
		})
		retryAfter := resetAt.Sub(s.clock.Now())
		if retryAfter < 0 {
			retryAfter = 0
		}
		return &IssueResult{Reason: apperrors.ErrCodeRateLimited, RetryAfter: retryAfter}, nil
	}

	code, err := GenerateCode(s.opts.CodeLength)
	if err != nil {
		return nil, apperrors.Internal("failed to generate code").WithCause(err)
	}

	now := s.clock.Now()
	record := &model.PinRecord{
		UserID:    userID,
		CodeHash:  s.hashCode(userID, code),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.opts.TTL),
	}
	if err := s.store.Put(ctx, record); err != nil {
		return nil, apperrors.Store(err)
	}

	deliveryOK := s.deliver(ctx, user, code)

	audit.Log(ctx, audit.Event{
		Type:    audit.EventPinIssue,
		UserID:  userID,
		Details: map[string]interface{}{"delivery_ok": deliveryOK},
	})

	result := &IssueResult{
		Success:          true,
		DeliveryOK:       deliveryOK,
		ExpiresInSeconds: int(s.opts.TTL.Seconds()),
	}
	if !deliveryOK {
		result.Reason = apperrors.ErrCodeDeliveryFailed
	}
	return result, nil
}

// deliver waits for the sender at most DeliveryTimeout. The record is already
// stored, so a slow or failed delivery only affects the reported status.
func (s *PinService) deliver(ctx context.Context, user *model.DirectoryUser, code string) bool {
	deliveryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.DeliveryTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.sender.Send(deliveryCtx, user.Email, user.DisplayName, code)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Error().Err(err).Str("user_id", user.ID).Msg("pin delivery failed")
			return false
		}
		return true
	case <-deliveryCtx.Done():
		log.Warn().
			Str("user_id", user.ID).
			Dur("timeout", s.opts.DeliveryTimeout).
			Msg("pin delivery timed out")
		return false
	}
}

func (s *PinService) ValidateCode(ctx context.Context, userID, submittedCode string) (*ValidateResult, error) {
	code := strings.TrimSpace(submittedCode)
	submittedHash := s.hashCode(userID, code)
	now := s.clock.Now()

	var result ValidateResult
	var event audit.EventType

	err := s.store.Update(ctx, userID, func(current *model.PinRecord) (*model.PinRecord, error) {
		event = ""
		switch {
		case current == nil:
			result = ValidateResult{Reason: apperrors.ErrCodeNoPendingVerification}
			return nil, nil
		case current.IsExpired(now):
			result = ValidateResult{Reason: apperrors.ErrCodeExpired}
			event = audit.EventPinExpired
			return nil, nil
		case current.IsLocked(s.opts.MaxAttempts):
			result = ValidateResult{Reason: apperrors.ErrCodeTooManyAttempts}
			event = audit.EventPinLockout
			return nil, nil
		case util.ConstantTimeEqual(current.CodeHash, submittedHash):
			result = ValidateResult{Success: true}
			event = audit.EventPinVerifySuccess
			return nil, nil
		}

		next := *current
		next.Attempts++
		if next.IsLocked(s.opts.MaxAttempts) {
			result = ValidateResult{Reason: apperrors.ErrCodeTooManyAttempts}
			event = audit.EventPinLockout
			return nil, nil
		}

		remaining := s.opts.MaxAttempts - next.Attempts
		result = ValidateResult{Reason: apperrors.ErrCodeInvalidCode, RemainingAttempts: &remaining}
		event = audit.EventPinVerifyFailure
		return &next, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrUpdateConflict) {
			log.Warn().Str("user_id", userID).Msg("pin validation gave up after concurrent updates")
		}
		return nil, apperrors.Store(err)
	}

	if event != "" {
		details := map[string]interface{}{}
		if result.RemainingAttempts != nil {
			details["remaining_attempts"] = *result.RemainingAttempts
		}
		audit.Log(ctx, audit.Event{Type: event, UserID: userID, Details: details})
	}

	return &result, nil
}

// HasPendingVerification reports whether a record exists for the user. It
// does not evaluate expiry or lockout.
func (s *PinService) HasPendingVerification(ctx context.Context, userID string) (bool, error) {
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		return false, apperrors.Store(err)
	}
	return record != nil, nil
}

// ClearVerification removes any record for the user. It succeeds whether or
// not a record existed.
func (s *PinService) ClearVerification(ctx context.Context, userID string) (bool, error) {
	existed, err := s.store.Delete(ctx, userID)
	if err != nil {
		return false, apperrors.Store(err)
	}

	audit.Log(ctx, audit.Event{
		Type:    audit.EventPinClear,
		UserID:  userID,
		Details: map[string]interface{}{"existed": existed},
	})
	return true, nil
}

// SweepExpired drops records that can no longer be validated.
func (s *PinService) SweepExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, s.clock.Now(), s.opts.MaxAttempts)
}

func (s *PinService) hashCode(userID, code string) string {
	return util.HmacSHA256(s.opts.HashSecret, userID+":"+code)
}
