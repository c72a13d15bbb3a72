package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"reverse-logistics/internal/core/proxy"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

const captureTimeout = 60 * time.Second

// capture describes one scrape: open pageURL, optionally drive the page,
// and grab the body of the first XHR matching pattern.
type capture struct {
	pageURL string
	pattern string
	// domain limits what the local proxy forwarder tunnels.
	domain   string
	interact func(page *rod.Page)
}

// browser launches headless Chromium, through the configured proxy if any.
type browser struct {
	proxy  proxy.Settings
	logger *zap.Logger
}

// fetch runs c and returns the captured response body.
func (b browser) fetch(ctx context.Context, c capture) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	proxyAddr := ""
	switch {
	case b.proxy.HasCredentials():
		fwd, err := proxy.NewForwardingProxy(b.proxy.FullURL(), c.domain)
		if err != nil {
			return nil, fmt.Errorf("failed to create proxy forwarder: %w", err)
		}
		proxyAddr, err = fwd.Start(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to start proxy forwarder: %w", err)
		}
		defer fwd.Stop()
	case b.proxy.HasProxy():
		proxyAddr = b.proxy.HostPort()
	}

	b.logger.Debug("Launching browser",
		zap.String("page", c.pageURL),
		zap.Bool("proxy_enabled", proxyAddr != ""))

	l := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)
	if proxyAddr != "" {
		l = l.Proxy(proxyAddr)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	br := rod.New().Context(ctx).ControlURL(controlURL)
	if err := br.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer br.Close()

	client := http.DefaultClient
	if proxyAddr != "" {
		proxyURL, err := url.Parse(proxyAddr)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy address %q: %w", proxyAddr, err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
			Timeout:   30 * time.Second,
		}
	}

	done := make(chan []byte, 1)
	err = rod.Try(func() {
		page := br.MustPage("")
		router := page.HijackRequests()
		router.MustAdd(c.pattern, func(h *rod.Hijack) {
			if err := h.LoadResponse(client, true); err != nil {
				b.logger.Warn("Failed to load captured response", zap.Error(err))
				return
			}
			select {
			case done <- []byte(h.Response.Body()):
			default:
			}
		})
		go router.Run()
		defer router.MustStop()

		page.MustNavigate(c.pageURL)
		if c.interact != nil {
			c.interact(page)
		}

		select {
		case body := <-done:
			done <- body
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, fmt.Errorf("browser session failed: %w", err)
	}

	select {
	case body := <-done:
		return body, nil
	default:
		return nil, fmt.Errorf("timeout waiting for courier response: %w", ctx.Err())
	}
}

// bogota is the courier timestamps' zone; they carry no offset.
var bogota = time.FixedZone("COT", -5*60*60)

// parseLocal tries each layout in turn and returns the zero time when none
// matches.
func parseLocal(value string, layouts ...string) time.Time {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, bogota); err == nil {
			return t
		}
	}
	return time.Time{}
}
