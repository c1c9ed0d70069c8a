package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	webhookUsecases "github.com/postline-io/postline/internal/application/webhook/usecases"
	"github.com/postline-io/postline/internal/shared/logger"
	"github.com/postline-io/postline/internal/shared/utils"
)

// Providers disagree on where the signature travels: the card network uses a
// dedicated header, the wallet sends a credential header, and the two-phase
// provider embeds sign_string in the form body.
const (
	cardSignatureHeader    = "Stripe-Signature"
	walletCredentialHeader = "X-Auth"
)

type WebhookHandler struct {
	ingestUC *webhookUsecases.IngestWebhookUseCase
	logger   logger.Interface
}

func NewWebhookHandler(ingestUC *webhookUsecases.IngestWebhookUseCase, logger logger.Interface) *WebhookHandler {
	return &WebhookHandler{ingestUC: ingestUC, logger: logger}
}

// @Summary		Provider webhook
// @Description	Receive a provider callback. Events are stored before verification; a 200 means the event was received, not that it mutated anything.
// @Tags			webhooks
// @Param			provider	path	string	true	"Provider name"	Enums(stripe, payme, click)
// @Success		200	{object}	utils.APIResponse
// @Failure		400	{object}	utils.APIResponse
// @Router			/payment/webhooks/{provider} [post]
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	provider := c.Param("provider")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	result, err := h.ingestUC.Execute(c.Request.Context(), webhookUsecases.IngestWebhookCommand{
		Provider:  provider,
		Body:      body,
		Signature: h.extractSignature(c, provider, body),
	})
	if err != nil {
		// Only unknown providers and storage failures surface as errors.
		// Anything after the event row exists resolves to an outcome.
		h.logger.Warnw("webhook ingestion failed", "error", err, "provider", provider)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"outcome":  string(result.Outcome),
		"event_id": result.ProviderEventID,
	})
}

func (h *WebhookHandler) extractSignature(c *gin.Context, provider string, body []byte) string {
	switch provider {
	case "stripe":
		return c.GetHeader(cardSignatureHeader)
	case "payme":
		return c.GetHeader(walletCredentialHeader)
	case "click":
		return formField(body, "sign_string")
	default:
		return ""
	}
}
