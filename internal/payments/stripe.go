// Package payments creates Stripe payment intents for appointment fees.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/amanahealth/clinic-concierge/internal/actions"
	"github.com/amanahealth/clinic-concierge/pkg/logging"
)

var stripeTracer = otel.Tracer("concierge.internal.payments")

// StripeService creates payment intents against the Stripe API. Amounts are
// charged in AED; Stripe expects the amount in fils (1 AED = 100 fils).
type StripeService struct {
	secretKey  string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
}

var _ actions.PaymentProvider = (*StripeService)(nil)

// NewStripeService creates a Stripe payment service.
func NewStripeService(secretKey string, logger *logging.Logger) *StripeService {
	if secretKey == "" {
		panic("payments: stripe secret key cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeService{
		secretKey:  secretKey,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeService) WithBaseURL(baseURL string) *StripeService {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

type paymentIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
}

// CreatePaymentIntent creates a Stripe payment intent for the appointment fee.
func (s *StripeService) CreatePaymentIntent(ctx context.Context, appointmentID string, amountAED float64) (*actions.PaymentHandle, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_payment_intent")
	defer span.End()
	span.SetAttributes(
		attribute.String("concierge.appointment_id", appointmentID),
		attribute.Float64("concierge.amount_aed", amountAED),
	)

	if amountAED <= 0 {
		return nil, fmt.Errorf("payments: amount must be positive, got %.2f", amountAED)
	}

	fils := int64(math.Round(amountAED * 100))

	form := url.Values{}
	form.Set("amount", fmt.Sprintf("%d", fils))
	form.Set("currency", "aed")
	form.Set("metadata[appointment_id]", appointmentID)
	form.Set("description", "Clinic appointment consultation fee")

	apiURL := s.baseURL + "/v1/payment_intents"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Stripe-Version", s.apiVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: stripe http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("payments: failed to read stripe response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		span.RecordError(fmt.Errorf("stripe status %d", resp.StatusCode))
		return nil, fmt.Errorf("payments: stripe error (status %d): %s", resp.StatusCode, string(body))
	}

	var intent paymentIntentResponse
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("payments: failed to decode stripe response: %w", err)
	}

	s.logger.Info("payment intent created",
		"appointment_id", appointmentID, "payment_intent_id", intent.ID, "amount_fils", fils)

	return &actions.PaymentHandle{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountAED:       amountAED,
	}, nil
}
