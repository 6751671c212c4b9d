package usecase

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/importlens/backend/internal/domain"
)

// structuredOffer is the price part of a schema.org Offer or AggregateOffer.
type structuredOffer struct {
	Price     string
	LowPrice  string
	HighPrice string
	Currency  string
	Unit      string
}

// Text renders the offer as a price candidate string.
func (o structuredOffer) Text() string {
	switch {
	case o.LowPrice != "" && o.HighPrice != "":
		return o.LowPrice + " - " + o.HighPrice
	case o.Price != "":
		return o.Price
	case o.LowPrice != "":
		return o.LowPrice
	default:
		return o.HighPrice
	}
}

// structuredProduct is a schema.org Product found in a JSON-LD block.
type structuredProduct struct {
	Name        string
	Description string
	Images      []string
	Offers      []structuredOffer
	Properties  []domain.SpecEntry
}

// parseStructuredProducts decodes JSON-LD blocks and returns every Product
// node, including nodes nested in arrays and @graph containers. Malformed
// blocks are skipped.
func parseStructuredProducts(blocks []string) []structuredProduct {
	var products []structuredProduct
	for _, block := range blocks {
		dec := json.NewDecoder(strings.NewReader(block))
		dec.UseNumber()

		var root interface{}
		if err := dec.Decode(&root); err != nil {
			continue
		}
		collectProducts(root, &products)
	}
	return products
}

func collectProducts(node interface{}, out *[]structuredProduct) {
	switch v := node.(type) {
	case []interface{}:
		for _, item := range v {
			collectProducts(item, out)
		}
	case map[string]interface{}:
		if hasType(v["@type"], "Product") {
			*out = append(*out, buildProduct(v))
			return
		}
		if graph, ok := v["@graph"]; ok {
			collectProducts(graph, out)
		}
		if main, ok := v["mainEntity"]; ok {
			collectProducts(main, out)
		}
	}
}

func hasType(value interface{}, want string) bool {
	switch v := value.(type) {
	case string:
		return strings.EqualFold(strings.TrimPrefix(v, "http://schema.org/"), want) ||
			strings.EqualFold(strings.TrimPrefix(v, "https://schema.org/"), want)
	case []interface{}:
		for _, item := range v {
			if hasType(item, want) {
				return true
			}
		}
	}
	return false
}

func buildProduct(node map[string]interface{}) structuredProduct {
	product := structuredProduct{
		Name:        cleanText(stringValue(node["name"])),
		Description: cleanText(stringValue(node["description"])),
		Images:      imageValues(node["image"]),
	}
	collectOffers(node["offers"], "", &product.Offers)

	if props, ok := node["additionalProperty"].([]interface{}); ok {
		for _, p := range props {
			prop, ok := p.(map[string]interface{})
			if !ok {
				continue
			}
			label := cleanText(stringValue(prop["name"]))
			value := cleanText(stringValue(prop["value"]))
			if label != "" && value != "" {
				product.Properties = append(product.Properties, domain.SpecEntry{Label: label, Value: value})
			}
		}
	}
	return product
}

// collectOffers flattens Offer, AggregateOffer and nested offer lists.
// Currency is inherited from the enclosing aggregate when an offer omits it.
func collectOffers(node interface{}, inheritedCurrency string, out *[]structuredOffer) {
	switch v := node.(type) {
	case []interface{}:
		for _, item := range v {
			collectOffers(item, inheritedCurrency, out)
		}
	case map[string]interface{}:
		offer := structuredOffer{
			Price:     stringValue(v["price"]),
			LowPrice:  stringValue(v["lowPrice"]),
			HighPrice: stringValue(v["highPrice"]),
			Currency:  stringValue(v["priceCurrency"]),
		}
		if spec, ok := v["priceSpecification"]; ok {
			applyPriceSpecification(spec, &offer)
		}
		if offer.Currency == "" {
			offer.Currency = inheritedCurrency
		}
		if offer.Text() != "" {
			*out = append(*out, offer)
		}
		if nested, ok := v["offers"]; ok {
			collectOffers(nested, offer.Currency, out)
		}
	}
}

func applyPriceSpecification(node interface{}, offer *structuredOffer) {
	spec, ok := node.(map[string]interface{})
	if !ok {
		if list, isList := node.([]interface{}); isList && len(list) > 0 {
			spec, ok = list[0].(map[string]interface{})
		}
		if !ok {
			return
		}
	}
	if offer.Price == "" {
		offer.Price = stringValue(spec["price"])
	}
	if offer.Currency == "" {
		offer.Currency = stringValue(spec["priceCurrency"])
	}
	offer.Unit = stringValue(spec["unitText"])
	if offer.Unit == "" {
		if ref, ok := spec["referenceQuantity"].(map[string]interface{}); ok {
			offer.Unit = stringValue(ref["unitText"])
		}
	}
}

func imageValues(node interface{}) []string {
	switch v := node.(type) {
	case string:
		return []string{v}
	case []interface{}:
		var images []string
		for _, item := range v {
			images = append(images, imageValues(item)...)
		}
		return images
	case map[string]interface{}:
		if u := stringValue(v["url"]); u != "" {
			return []string{u}
		}
		if u := stringValue(v["contentUrl"]); u != "" {
			return []string{u}
		}
	}
	return nil
}

func stringValue(node interface{}) string {
	switch v := node.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []interface{}:
		if len(v) > 0 {
			return stringValue(v[0])
		}
	case map[string]interface{}:
		if value, ok := v["@value"]; ok {
			return stringValue(value)
		}
		if name, ok := v["name"]; ok {
			return stringValue(name)
		}
	}
	return ""
}
