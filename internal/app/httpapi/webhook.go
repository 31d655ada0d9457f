package httpapi

import (
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	apperrors "github.com/saayr-labs/progression-layer/internal/errors"
)

// PartnerMultiplier is the XP multiplier applied to partner-originated
// transactions.
const PartnerMultiplier = 2

const maxWebhookBody = 1 << 20

// partnerWebhook ingests payment-provider notifications. Providers disagree
// on payload shape, so fields are picked out by path with fallbacks rather
// than bound to a strict struct.
func (h *handler) partnerWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, apperrors.InvalidArgument("read body: %v", err))
		return
	}
	defer r.Body.Close()

	if !gjson.ValidBytes(body) {
		writeError(w, apperrors.InvalidArgument("body is not valid JSON"))
		return
	}

	userID := firstString(body, "user_id", "customer.id", "customer_id")
	merchant := firstString(body, "merchant.name", "merchant_name", "merchant")
	amount := firstNumber(body, "amount", "transaction.amount", "total")
	currency := firstString(body, "currency", "transaction.currency")
	category := firstString(body, "category", "merchant.category")

	if userID == "" {
		writeError(w, apperrors.InvalidArgument("user_id is required"))
		return
	}

	tx, err := h.deps.Ledger.RecordTransaction(r.Context(), userID, merchant, currency, category, amount, true, PartnerMultiplier)
	if err != nil {
		writeError(w, err)
		return
	}

	h.log.WithField("user_id", userID).
		WithField("merchant", merchant).
		WithField("amount", amount).
		Info("partner webhook settled")
	writeJSON(w, http.StatusCreated, tx)
}

func firstString(body []byte, paths ...string) string {
	for _, path := range paths {
		if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func firstNumber(body []byte, paths ...string) float64 {
	for _, path := range paths {
		if v := gjson.GetBytes(body, path); v.Exists() {
			return v.Float()
		}
	}
	return 0
}
