package service

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/salyqtech/salyq-backend/internal/app/model"
	"github.com/salyqtech/salyq-backend/internal/app/repository"
	"github.com/salyqtech/salyq-backend/internal/parser"
	"github.com/salyqtech/salyq-backend/pkg/logger"
)

// RateService — обновление официальных курсов валют из RSS-ленты
// Нацбанка РК.
type RateService interface {
	UpdateFromFeed() error
}

type rateService struct {
	rateRepo repository.CurrencyRateRepository
	feedURL  string
	client   *http.Client
}

func NewRateService(rateRepo repository.CurrencyRateRepository, feedURL string) RateService {
	return &rateService{
		rateRepo: rateRepo,
		feedURL:  feedURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// структура RSS-ленты rates_all.xml
type ratesFeed struct {
	Date  string `xml:"date"`
	Items []struct {
		Title       string `xml:"title"`       // код валюты
		Description string `xml:"description"` // курс
		PubDate     string `xml:"pubDate"`
		Quant       string `xml:"quant"` // номинал
	} `xml:"channel>item"`
}

func (s *rateService) UpdateFromFeed() error {
	resp, err := s.client.Get(s.feedURL)
	if err != nil {
		return fmt.Errorf("rates feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rates feed returned status %d", resp.StatusCode)
	}

	var feed ratesFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return fmt.Errorf("rates feed is not valid XML: %w", err)
	}

	rateDate := time.Now().UTC().Truncate(24 * time.Hour)
	if feed.Date != "" {
		if normalized, err := parser.NormalizeDate(feed.Date); err == nil {
			if parsed, err := time.Parse("2006-01-02", normalized); err == nil {
				rateDate = parsed
			}
		}
	}

	rates := make([]model.CurrencyRate, 0, len(feed.Items))
	for _, item := range feed.Items {
		value, err := parser.ParseAmount(item.Description)
		if err != nil {
			logger.Warn("Skipping malformed rate entry", map[string]interface{}{
				"currency": item.Title,
				"value":    item.Description,
			})
			continue
		}
		// курс нормируется на единицу валюты
		if item.Quant != "" && item.Quant != "1" {
			if quant, err := parser.ParseAmount(item.Quant); err == nil && !quant.IsZero() {
				value = value.Div(quant)
			}
		}
		rates = append(rates, model.CurrencyRate{
			Currency: parser.NormalizeCurrency(item.Title),
			RateDate: rateDate,
			Rate:     value,
			Source:   "NBK",
		})
	}

	if len(rates) == 0 {
		return fmt.Errorf("rates feed contained no usable entries")
	}
	if err := s.rateRepo.Upsert(rates); err != nil {
		return err
	}

	logger.Info("Currency rates updated", map[string]interface{}{
		"count": len(rates),
		"date":  rateDate.Format("2006-01-02"),
	})
	return nil
}
