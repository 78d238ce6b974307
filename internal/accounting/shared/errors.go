package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind classifies ledger failures surfaced to callers.
type Kind string

const (
	KindUnbalanced            Kind = "UNBALANCED"
	KindInsufficientLines     Kind = "INSUFFICIENT_LINES"
	KindInvalidAmount         Kind = "INVALID_AMOUNT"
	KindMissingDefaultAccount Kind = "MISSING_DEFAULT_ACCOUNT"
	KindAccountNotFound       Kind = "ACCOUNT_NOT_FOUND"
	KindDocumentNotFound      Kind = "DOCUMENT_NOT_FOUND"
	KindUnauthorized          Kind = "UNAUTHORIZED"
	KindValidation            Kind = "VALIDATION"
	KindDuplicateAccount      Kind = "DUPLICATE_ACCOUNT_NUMBER"
	KindAccountInUse          Kind = "ACCOUNT_IN_USE"
	KindPaymentExceedsBalance Kind = "PAYMENT_EXCEEDS_BALANCE"
	KindAmountMismatch        Kind = "AMOUNT_MISMATCH"
)

// Error is the structured failure returned by the accounting core.
type Error struct {
	Kind    Kind
	Message string
	// Debit and Credit are populated for KindUnbalanced.
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "accounting: " + string(e.Kind)
	}
	return "accounting: " + e.Message
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = &Error{Kind: KindUnbalanced, Message: "journal lines must balance"}
	// ErrInsufficientLines indicates less than two lines.
	ErrInsufficientLines = &Error{Kind: KindInsufficientLines, Message: "journal requires at least two lines"}
	// ErrInvalidAmount indicates a non-positive line amount.
	ErrInvalidAmount = &Error{Kind: KindInvalidAmount, Message: "line amount must be positive"}
	// ErrMissingDefaultAccount indicates tenant configuration lacks a required account.
	ErrMissingDefaultAccount = &Error{Kind: KindMissingDefaultAccount, Message: "default account not configured"}
	// ErrAccountNotFound indicates the account is missing or owned by another tenant.
	ErrAccountNotFound = &Error{Kind: KindAccountNotFound, Message: "account not found"}
	// ErrDocumentNotFound indicates the entry or source document is missing.
	ErrDocumentNotFound = &Error{Kind: KindDocumentNotFound, Message: "document not found"}
	// ErrUnauthorized indicates the request carries no tenant scope.
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "tenant scope required"}
	// ErrValidation indicates malformed input.
	ErrValidation = &Error{Kind: KindValidation, Message: "validation failed"}
	// ErrDuplicateAccountNumber indicates the account number already exists for the tenant.
	ErrDuplicateAccountNumber = &Error{Kind: KindDuplicateAccount, Message: "account number already exists"}
	// ErrAccountInUse indicates journal lines still reference the account.
	ErrAccountInUse = &Error{Kind: KindAccountInUse, Message: "account has journal lines"}
	// ErrPaymentExceedsBalance indicates a payment larger than the balance due.
	ErrPaymentExceedsBalance = &Error{Kind: KindPaymentExceedsBalance, Message: "payment exceeds balance due"}
	// ErrAmountMismatch indicates a bank transaction and payment differ.
	ErrAmountMismatch = &Error{Kind: KindAmountMismatch, Message: "amounts do not match"}
)

// Unbalanced builds the failure carrying both totals.
func Unbalanced(debit, credit decimal.Decimal) error {
	return &Error{
		Kind:    KindUnbalanced,
		Message: fmt.Sprintf("entry is not balanced: debits %s, credits %s", debit.StringFixed(2), credit.StringFixed(2)),
		Debit:   debit,
		Credit:  credit,
	}
}

// InvalidAmount reports the offending line.
func InvalidAmount(idx int, reason string) error {
	return &Error{Kind: KindInvalidAmount, Message: fmt.Sprintf("line %d: %s", idx, reason)}
}

// MissingDefaultAccount names the missing setting.
func MissingDefaultAccount(setting string) error {
	return &Error{Kind: KindMissingDefaultAccount, Message: fmt.Sprintf("configure the default %s account", setting)}
}

// Invalid wraps a validation message.
func Invalid(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound describes a missing document of the given kind.
func NotFound(kind string, id int64) error {
	return &Error{Kind: KindDocumentNotFound, Message: fmt.Sprintf("%s %d not found", kind, id)}
}

// KindOf extracts the kind of a core failure, or "" for infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
