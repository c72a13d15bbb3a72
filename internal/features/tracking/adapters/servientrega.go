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

// ServientregaProvider scrapes the Servientrega mobile tracking page.
type ServientregaProvider struct {
	baseURL string
	browser browser
	logger  *zap.Logger
}

// NewServientregaProvider creates a provider for the given page URL, which
// must hold a %s placeholder for the tracking number.
func NewServientregaProvider(baseURL string, proxySettings proxy.Settings) *ServientregaProvider {
	log := logger.Named("tracking.servientrega")
	return &ServientregaProvider{
		baseURL: baseURL,
		browser: browser{proxy: proxySettings, logger: log},
		logger:  log,
	}
}

type servientregaResponse struct {
	Results []struct {
		NumeroGuia   string `json:"numeroGuia"`
		EstadoActual string `json:"estadoActual"`
		Movimientos  []struct {
			Fecha      string `json:"fecha"`
			Movimiento string `json:"movimiento"`
			Ubicacion  string `json:"ubicacion"`
			Novedad    string `json:"Novedad"`
			IdProceso  string `json:"IdProceso"`
		} `json:"movimientos"`
	} `json:"Results"`
}

// GetTrackingHistory loads the tracking page and captures its validation call.
func (p *ServientregaProvider) GetTrackingHistory(ctx context.Context, trackingNumber string) (*domain.History, error) {
	body, err := p.browser.fetch(ctx, capture{
		pageURL: fmt.Sprintf(p.baseURL, trackingNumber),
		pattern: "*/api/ControlRastreovalidaciones",
		domain:  "servientrega.com",
	})
	if err != nil {
		return nil, err
	}
	return p.parse(body)
}

func (p *ServientregaProvider) parse(body []byte) (*domain.History, error) {
	var resp servientregaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse servientrega response: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("no tracking results found")
	}

	history := domain.NewHistory()
	for _, m := range resp.Results[0].Movimientos {
		text := m.Movimiento
		if m.Novedad != "" {
			text = m.Movimiento + " - " + m.Novedad
		}
		history.Add(domain.Event{
			Date:   parseLocal(strings.TrimSpace(m.Fecha), "02/01/2006 15:04"),
			Text:   text,
			City:   m.Ubicacion,
			Code:   m.IdProceso,
			Status: p.normalize(m.Movimiento, m.Novedad),
		})
	}
	return history, nil
}

// normalize reads the movement text; Servientrega process ids are not
// stable enough to map.
func (p *ServientregaProvider) normalize(movement, novelty string) domain.Status {
	m := strings.ToUpper(strings.TrimSpace(movement))
	switch {
	case strings.Contains(m, "ENTREGADO A REMITENTE"), strings.Contains(m, "DEVOLUCION"), strings.Contains(m, "DEVOLUCIÓN"):
		return domain.StatusRTO
	case strings.HasPrefix(m, "ENTREGADO"):
		return domain.StatusDelivered
	case strings.TrimSpace(novelty) != "":
		return domain.StatusDeliveryFailed
	case strings.Contains(m, "REPARTO"), strings.Contains(m, "TRANSITO"), strings.Contains(m, "TRÁNSITO"),
		strings.Contains(m, "CENTRO"), strings.HasPrefix(m, "SALIO"):
		return domain.StatusInTransit
	}
	return domain.StatusProcessing
}

// SupportsCourier reports whether courierName is servientrega_co.
func (p *ServientregaProvider) SupportsCourier(courierName string) bool {
	return courierName == "servientrega_co"
}
