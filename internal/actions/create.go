package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/theirongolddev/chainfund/internal/ledger"
	"github.com/theirongolddev/chainfund/internal/model"
	"github.com/theirongolddev/chainfund/internal/units"
)

// ErrInvalidInput indicates a create form that failed validation.
var ErrInvalidInput = errors.New("actions: invalid input")

var validate = validator.New()

// FieldError describes one invalid form field.
type FieldError struct {
	Field   string
	Message string
	Tag     string
}

// ValidationError lists every invalid field of a form.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// validateInput runs struct validation and maps failures to a *ValidationError.
func validateInput(obj any) error {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
			Tag:     fe.Tag(),
		})
	}
	return ve
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "is too long"
	case "url":
		return "must be a URL"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

// CampaignInput is the create-campaign form.
type CampaignInput struct {
	Title       string `validate:"required,max=120"`
	Description string `validate:"required,max=4000"`
	Target      string `validate:"required"` // ether
	Deadline    time.Time
	Image       string `validate:"omitempty,url"`
}

// LoanInput is the create-loan form.
type LoanInput struct {
	Purpose         string  `validate:"required,max=500"`
	Amount          string  `validate:"required"` // ether
	InterestPercent float64 `validate:"gte=0,lte=100"`
	DurationDays    float64 `validate:"gt=0"`
}

// CampaignsResult is the campaign list read back after creating a campaign.
type CampaignsResult struct {
	Receipt   *ledger.Receipt
	Campaigns []model.CampaignSnapshot
}

// CreateCampaign registers a new campaign owned by the caller.
func (r *Runner) CreateCampaign(ctx context.Context, in CampaignInput) (*CampaignsResult, error) {
	owner, err := r.caller(ctx)
	if err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Image = strings.TrimSpace(in.Image)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	target, err := positiveAmount(in.Target)
	if err != nil {
		return nil, err
	}
	if !in.Deadline.After(r.now()) {
		return nil, &ValidationError{Fields: []FieldError{{Field: "Deadline", Message: "must be in the future", Tag: "future"}}}
	}

	// New campaigns have no id until the ledger assigns one; debounce on -1.
	release, err := r.acquire(SubjectCampaign, -1, ledger.MethodCreateCampaign)
	if err != nil {
		return nil, err
	}
	defer release()

	receipt, err := r.send(ctx, ledger.Tx{
		Contract: r.contracts.Crowdfunding,
		Method:   ledger.MethodCreateCampaign,
		Args:     []any{owner, in.Title, in.Description, target.String(), in.Deadline.Unix(), in.Image},
		From:     owner,
	}, SubjectCampaign, -1)
	if err != nil {
		return nil, err
	}

	res := &CampaignsResult{Receipt: receipt}
	if res.Campaigns, err = r.mirror.Campaigns(ctx); err != nil {
		return res, r.refreshFailed(ledger.MethodCreateCampaign, err)
	}
	return res, nil
}

// CreateLoan requests a new loan with the caller as borrower.
func (r *Runner) CreateLoan(ctx context.Context, in LoanInput) (*LoanResult, error) {
	from, err := r.caller(ctx)
	if err != nil {
		return nil, err
	}
	in.Purpose = strings.TrimSpace(in.Purpose)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	amount, err := positiveAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	rate, err := units.PercentToBasisPoints(in.InterestPercent)
	if err != nil {
		return nil, err
	}
	duration, err := units.DaysToSeconds(in.DurationDays)
	if err != nil {
		return nil, err
	}

	release, err := r.acquire(SubjectLoan, -1, ledger.MethodCreateLoan)
	if err != nil {
		return nil, err
	}
	defer release()

	receipt, err := r.send(ctx, ledger.Tx{
		Contract: r.contracts.Microfinance,
		Method:   ledger.MethodCreateLoan,
		Args:     []any{in.Purpose, amount.String(), rate, duration},
		From:     from,
	}, SubjectLoan, -1)
	if err != nil {
		return nil, err
	}

	res := &LoanResult{Receipt: receipt}
	if res.Loans, err = r.mirror.Loans(ctx, nil); err != nil {
		return res, r.refreshFailed(ledger.MethodCreateLoan, err)
	}
	return res, nil
}
