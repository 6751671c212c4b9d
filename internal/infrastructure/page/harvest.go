package page

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/importlens/backend/internal/domain"
)

// challengeMarkers are lowercase phrases that identify captcha or
// robot-check interstitials served instead of a product page.
var challengeMarkers = []string{
	"enter the characters you see",
	"type the characters you see",
	"sorry, we just need to make sure you're not a robot",
	"slide to verify",
	"please slide to verify",
}

// Harvest parses an HTML document into page signals: raw JSON-LD blocks and
// meta tags keyed by name, property or itemprop.
func Harvest(pageURL, html string, fetchedAt time.Time) (*domain.PageSignals, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", domain.ErrFetchFailure, err)
	}
	if err := detectChallenge(doc); err != nil {
		return nil, err
	}

	signals := &domain.PageSignals{
		URL:            pageURL,
		HTML:           html,
		StructuredData: make([]string, 0),
		Meta:           make([]domain.MetaTag, 0),
		FetchedAt:      fetchedAt,
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		if block := strings.TrimSpace(s.Text()); block != "" {
			signals.StructuredData = append(signals.StructuredData, block)
		}
	})

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name := metaName(s)
		content, ok := s.Attr("content")
		if name == "" || !ok {
			return
		}
		signals.Meta = append(signals.Meta, domain.MetaTag{Name: name, Content: strings.TrimSpace(content)})
	})

	// Microdata outside <meta>, e.g. <span itemprop="price" content="12.00">
	doc.Find("[itemprop][content]").Not("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("itemprop")
		content, _ := s.Attr("content")
		if name = strings.TrimSpace(name); name != "" {
			signals.Meta = append(signals.Meta, domain.MetaTag{Name: name, Content: strings.TrimSpace(content)})
		}
	})

	return signals, nil
}

func metaName(s *goquery.Selection) string {
	for _, attr := range []string{"property", "name", "itemprop"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func detectChallenge(doc *goquery.Document) error {
	if doc.Find(`form[action*="validateCaptcha"], #captchacharacters, #nc_1_n1z`).Length() > 0 {
		return fmt.Errorf("%w: bot challenge page", domain.ErrFetchFailure)
	}

	content := strings.ToLower(doc.Find("body").Text())
	for _, marker := range challengeMarkers {
		if strings.Contains(content, marker) {
			return fmt.Errorf("%w: bot challenge page", domain.ErrFetchFailure)
		}
	}
	return nil
}
