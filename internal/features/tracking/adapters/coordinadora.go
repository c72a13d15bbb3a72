package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/core/proxy"
	"reverse-logistics/internal/features/tracking/domain"

	"go.uber.org/zap"
)

// coordinadoraCodes maps the fixed Coordinadora codes. Every 7xx code is
// some kind of incidence and handled separately.
var coordinadoraCodes = map[string]domain.Status{
	"2":           domain.StatusProcessing, // EN TERMINAL ORIGEN
	"3":           domain.StatusInTransit,  // EN TRANSPORTE
	"4":           domain.StatusInTransit,  // EN TERMINAL DESTINO
	"5":           domain.StatusInTransit,  // EN REPARTO
	"6":           domain.StatusDelivered,  // ENTREGADA
	"8":           domain.StatusRTO,        // CERRADO POR INCIDENCIA
	"701_4":       domain.StatusInTransit,  // Novedad tiene solución
	"701_10":      domain.StatusInTransit,  // Novedad tiene solución
	"post_binded": domain.StatusProcessing, // Nueva guia generada
}

// CoordinadoraProvider scrapes the Coordinadora tracking page.
type CoordinadoraProvider struct {
	baseURL string
	browser browser
	logger  *zap.Logger
}

// NewCoordinadoraProvider creates a provider for the given page URL, which
// may hold a %s placeholder for the tracking number.
func NewCoordinadoraProvider(baseURL string, proxySettings proxy.Settings) *CoordinadoraProvider {
	log := logger.Named("tracking.coordinadora")
	return &CoordinadoraProvider{
		baseURL: baseURL,
		browser: browser{proxy: proxySettings, logger: log},
		logger:  log,
	}
}

type coordinadoraResponse struct {
	TrackingNumber string `json:"tracking_number"`
	History        []struct {
		Code        string `json:"code"`
		Date        string `json:"date"`
		Description string `json:"description"`
	} `json:"history"`
}

func (p *CoordinadoraProvider) pageURL(trackingNumber string) string {
	switch {
	case strings.Contains(p.baseURL, "%s"):
		return fmt.Sprintf(p.baseURL, trackingNumber)
	case strings.HasSuffix(p.baseURL, "="):
		return p.baseURL + trackingNumber
	default:
		return p.baseURL + "?guia=" + trackingNumber
	}
}

// GetTrackingHistory loads the tracking page and captures its detail call.
func (p *CoordinadoraProvider) GetTrackingHistory(ctx context.Context, trackingNumber string) (*domain.History, error) {
	body, err := p.browser.fetch(ctx, capture{
		pageURL: p.pageURL(trackingNumber),
		pattern: "*/wp-json/rgc/v1/detail_tracking*",
		domain:  "coordinadora.com",
	})
	if err != nil {
		return nil, err
	}
	return p.parse(body)
}

func (p *CoordinadoraProvider) parse(body []byte) (*domain.History, error) {
	var resp coordinadoraResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse coordinadora response: %w", err)
	}

	history := domain.NewHistory()
	for _, item := range resp.History {
		history.Add(domain.Event{
			Date:   parseLocal(item.Date, "2006-01-02 15:04:05"),
			Text:   item.Description,
			Code:   item.Code,
			Status: p.normalize(item.Code, item.Description),
		})
	}
	return history, nil
}

func (p *CoordinadoraProvider) normalize(code, description string) domain.Status {
	if s, ok := coordinadoraCodes[code]; ok {
		return s
	}
	if strings.HasPrefix(code, "7") {
		return domain.StatusDeliveryFailed
	}
	p.logger.Warn("Unknown Coordinadora status code",
		zap.String("code", code),
		zap.String("description", description))
	return domain.StatusProcessing
}

// SupportsCourier reports whether courierName is coordinadora_co.
func (p *CoordinadoraProvider) SupportsCourier(courierName string) bool {
	return courierName == "coordinadora_co"
}
