package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/core/proxy"
	"reverse-logistics/internal/features/tracking/domain"

	"github.com/go-rod/rod"
	"go.uber.org/zap"
)

var interrapidisimoCodes = map[int]domain.Status{
	1:  domain.StatusProcessing,     // Recibimos tu envío
	2:  domain.StatusInTransit,      // En Centro Logístico
	3:  domain.StatusInTransit,      // Viajando a tu destino
	4:  domain.StatusInTransit,      // Viajando a tu destino
	6:  domain.StatusInTransit,      // En camino hacia ti
	7:  domain.StatusDeliveryFailed, // No logramos hacer la entrega
	10: domain.StatusRTO,            // Tu envío fue devuelto
	11: domain.StatusDelivered,      // Tu envío fue entregado
	16: domain.StatusProcessing,     // Archivada
}

// InterrapidisimoProvider scrapes the Interrapidisimo tracking page.
type InterrapidisimoProvider struct {
	baseURL string
	browser browser
	logger  *zap.Logger
}

// NewInterrapidisimoProvider creates a provider for the given page URL.
func NewInterrapidisimoProvider(baseURL string, proxySettings proxy.Settings) *InterrapidisimoProvider {
	log := logger.Named("tracking.interrapidisimo")
	return &InterrapidisimoProvider{
		baseURL: baseURL,
		browser: browser{proxy: proxySettings, logger: log},
		logger:  log,
	}
}

type interrapidisimoResponse struct {
	EstadosGuia []struct {
		EstadoGuia struct {
			IdEstadoGuia          int    `json:"IdEstadoGuia"`
			DescripcionEstadoGuia string `json:"DescripcionEstadoGuia"`
			Ciudad                string `json:"Ciudad"`
			FechaGrabacion        string `json:"FechaGrabacion"`
		} `json:"EstadoGuia"`
	} `json:"EstadosGuia"`
	Success bool   `json:"Success"`
	Message string `json:"Message"`
}

// GetTrackingHistory searches the tracking number on the page and captures
// the lookup call it makes.
func (p *InterrapidisimoProvider) GetTrackingHistory(ctx context.Context, trackingNumber string) (*domain.History, error) {
	body, err := p.browser.fetch(ctx, capture{
		pageURL: p.baseURL,
		pattern: "*/ObtenerRastreoGuiasClientePost",
		domain:  "interrapidisimo.com",
		interact: func(page *rod.Page) {
			input := page.MustElement("#inputGuide")
			input.MustWaitVisible()
			input.MustInput(trackingNumber)
			page.MustElement(".search-button").MustClick()
		},
	})
	if err != nil {
		return nil, err
	}
	return p.parse(body)
}

func (p *InterrapidisimoProvider) parse(body []byte) (*domain.History, error) {
	var resp interrapidisimoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse interrapidisimo response: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("courier error: %s", resp.Message)
	}

	history := domain.NewHistory()
	for _, item := range resp.EstadosGuia {
		state := item.EstadoGuia
		status, ok := interrapidisimoCodes[state.IdEstadoGuia]
		if !ok {
			p.logger.Warn("Unknown Interrapidisimo status code",
				zap.Int("code", state.IdEstadoGuia),
				zap.String("description", state.DescripcionEstadoGuia))
			status = domain.StatusProcessing
		}
		history.Add(domain.Event{
			// Fractional seconds are accepted without being in the layout.
			Date:   parseLocal(state.FechaGrabacion, "2006-01-02T15:04:05"),
			Text:   state.DescripcionEstadoGuia,
			City:   state.Ciudad,
			Code:   strconv.Itoa(state.IdEstadoGuia),
			Status: status,
		})
	}
	return history, nil
}

// SupportsCourier reports whether courierName is interrapidisimo_co.
func (p *InterrapidisimoProvider) SupportsCourier(courierName string) bool {
	return courierName == "interrapidisimo_co"
}
