package services

import (
	"fmt"
	"net"
	neturl "net/url"
	"strings"
	"sync"

	"github.com/containrrr/shoutrrr"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/models"
	"github.com/Wikid82/geogate/internal/util"
)

// SendFunc delivers msg to a shoutrrr URL.
type SendFunc func(url, msg string) error

// staticTarget is a destination configured outside the database.
type staticTarget struct {
	url    string
	events map[string]bool
}

type NotificationService struct {
	DB *gorm.DB

	send    SendFunc
	statics []staticTarget
	wg      sync.WaitGroup
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db, send: shoutrrr.Send}
}

// SetSender replaces the delivery function.
func (s *NotificationService) SetSender(fn SendFunc) { s.send = fn }

// AddStaticURL registers a configured destination for the given events.
// Empty URLs are ignored.
func (s *NotificationService) AddStaticURL(url string, events ...string) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	set := make(map[string]bool, len(events))
	for _, e := range events {
		set[e] = true
	}
	s.statics = append(s.statics, staticTarget{url: url, events: set})
}

// SendExternal fans a message out to every enabled provider subscribed to
// eventType plus matching static URLs. Delivery is asynchronous; Wait blocks
// until in-flight sends finish.
func (s *NotificationService) SendExternal(eventType, title, message string) {
	var targets []string
	for _, st := range s.statics {
		if st.events[eventType] {
			targets = append(targets, st.url)
		}
	}

	var providers []models.NotificationProvider
	if err := s.DB.Where("enabled = ?", true).Find(&providers).Error; err != nil {
		logger.Log().WithError(err).Error("failed to fetch notification providers")
	}
	for i := range providers {
		if providers[i].Wants(eventType) {
			targets = append(targets, providers[i].URL)
		}
	}

	msg := fmt.Sprintf("%s\n\n%s", title, message)
	for _, url := range targets {
		s.wg.Add(1)
		go func(url string) {
			defer s.wg.Done()
			if err := s.deliver(url, msg); err != nil {
				logger.WithFields(logrus.Fields{
					"event":  eventType,
					"target": util.SanitizeForLog(redactURL(url)),
					"error":  err.Error(),
				}).Warn("notification delivery failed")
			}
		}(url)
	}
}

// Wait blocks until all notifications started so far have been attempted.
func (s *NotificationService) Wait() { s.wg.Wait() }

func (s *NotificationService) deliver(url, msg string) error {
	// Generic webhooks go through the same destination checks as any
	// outbound request.
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		if _, err := validateWebhookURL(url); err != nil {
			return err
		}
	}
	return s.send(url, msg)
}

// TestProvider sends a test message to one provider synchronously.
func (s *NotificationService) TestProvider(provider models.NotificationProvider) error {
	return s.deliver(provider.URL, "Test notification from geogate")
}

// Provider management

func (s *NotificationService) ListProviders() ([]models.NotificationProvider, error) {
	var providers []models.NotificationProvider
	result := s.DB.Order("created_at asc").Find(&providers)
	return providers, result.Error
}

func (s *NotificationService) CreateProvider(provider *models.NotificationProvider) error {
	if strings.TrimSpace(provider.URL) == "" {
		return fmt.Errorf("provider url is required")
	}
	return s.DB.Create(provider).Error
}

func (s *NotificationService) UpdateProvider(provider *models.NotificationProvider) error {
	return s.DB.Save(provider).Error
}

func (s *NotificationService) DeleteProvider(id string) error {
	return s.DB.Delete(&models.NotificationProvider{}, "id = ?", id).Error
}

// redactURL drops credentials from a URL before it is logged.
func redactURL(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}

// isPrivateIP returns true for RFC1918, loopback and link-local addresses.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsPrivate() {
		return true
	}
	return ip.IsUnspecified()
}

// validateWebhookURL parses a webhook URL and rejects destinations that
// resolve to private addresses. Loopback names are accepted for local tests.
func validateWebhookURL(raw string) (*neturl.URL, error) {
	u, err := neturl.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("missing host")
	}
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return u, nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return nil, fmt.Errorf("disallowed host IP: %s", ip.String())
		}
	}
	return u, nil
}
