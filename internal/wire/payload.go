package wire

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/akenel/helixnet-sub001/internal/domain"
)

// Payload structs are the wire shape of the entities. Currency travels as its
// ISO 4217 code; decimals marshal as strings so no precision is lost.

type NeedPayload struct {
	ID            uuid.UUID       `json:"id"`
	RequesterID   string          `json:"requester_id"`
	RequesterName string          `json:"requester_name"`
	Query         string          `json:"query"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	Urgency       string          `json:"urgency"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	Status        string          `json:"status"`
}

type OfferPayload struct {
	ID                uuid.UUID       `json:"id"`
	NeedID            uuid.UUID       `json:"need_id"`
	OffererID         string          `json:"offerer_id"`
	OffererName       string          `json:"offerer_name"`
	ProductSKU        string          `json:"product_sku"`
	ProductName       string          `json:"product_name"`
	PricePerUnit      decimal.Decimal `json:"price_per_unit"`
	Currency          string          `json:"currency"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	LeadTime          string          `json:"lead_time"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	Status            string          `json:"status"`
}

type OrderPayload struct {
	ID           uuid.UUID       `json:"id"`
	NeedID       uuid.UUID       `json:"need_id"`
	OfferID      uuid.UUID       `json:"offer_id"`
	BuyerID      string          `json:"buyer_id"`
	BuyerName    string          `json:"buyer_name"`
	SellerID     string          `json:"seller_id"`
	SellerName   string          `json:"seller_name"`
	ProductSKU   string          `json:"product_sku"`
	ProductName  string          `json:"product_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Currency     string          `json:"currency"`
	CreatedAt    time.Time       `json:"created_at"`
	Status       string          `json:"status"`
}

func FromNeed(n domain.Need) NeedPayload {
	return NeedPayload{
		ID:            n.ID,
		RequesterID:   n.RequesterID,
		RequesterName: n.RequesterName,
		Query:         n.Query,
		Quantity:      n.Quantity,
		Unit:          n.Unit,
		Urgency:       string(n.Urgency),
		Notes:         n.Notes,
		CreatedAt:     n.CreatedAt,
		ExpiresAt:     n.ExpiresAt,
		Status:        string(n.Status),
	}
}

func (p NeedPayload) ToDomain() (domain.Need, error) {
	urgency, err := domain.ToUrgency(p.Urgency)
	if err != nil {
		return domain.Need{}, fmt.Errorf("domain.ToUrgency: %w", err)
	}

	status, err := domain.ToNeedStatus(p.Status)
	if err != nil {
		return domain.Need{}, fmt.Errorf("domain.ToNeedStatus: %w", err)
	}

	return domain.Need{
		ID:            p.ID,
		RequesterID:   p.RequesterID,
		RequesterName: p.RequesterName,
		Query:         p.Query,
		Quantity:      p.Quantity,
		Unit:          p.Unit,
		Urgency:       urgency,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
		ExpiresAt:     p.ExpiresAt,
		Status:        status,
	}, nil
}

func FromOffer(o domain.Offer) OfferPayload {
	return OfferPayload{
		ID:                o.ID,
		NeedID:            o.NeedID,
		OffererID:         o.OffererID,
		OffererName:       o.OffererName,
		ProductSKU:        o.ProductSKU,
		ProductName:       o.ProductName,
		PricePerUnit:      o.PricePerUnit.Amount,
		Currency:          o.PricePerUnit.Currency.String(),
		AvailableQuantity: o.AvailableQuantity,
		LeadTime:          o.LeadTime,
		Notes:             o.Notes,
		CreatedAt:         o.CreatedAt,
		Status:            string(o.Status),
	}
}

func (p OfferPayload) ToDomain() (domain.Offer, error) {
	parsedCurrency, err := currency.ParseISO(p.Currency)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("currency[%s] is not valid: %w", p.Currency, err)
	}

	status, err := domain.ToOfferStatus(p.Status)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("domain.ToOfferStatus: %w", err)
	}

	return domain.Offer{
		ID:                p.ID,
		NeedID:            p.NeedID,
		OffererID:         p.OffererID,
		OffererName:       p.OffererName,
		ProductSKU:        p.ProductSKU,
		ProductName:       p.ProductName,
		PricePerUnit:      domain.Money{Amount: p.PricePerUnit, Currency: parsedCurrency},
		AvailableQuantity: p.AvailableQuantity,
		LeadTime:          p.LeadTime,
		Notes:             p.Notes,
		CreatedAt:         p.CreatedAt,
		Status:            status,
	}, nil
}

func FromOrder(o domain.Order) OrderPayload {
	return OrderPayload{
		ID:           o.ID,
		NeedID:       o.NeedID,
		OfferID:      o.OfferID,
		BuyerID:      o.BuyerID,
		BuyerName:    o.BuyerName,
		SellerID:     o.SellerID,
		SellerName:   o.SellerName,
		ProductSKU:   o.ProductSKU,
		ProductName:  o.ProductName,
		Quantity:     o.Quantity,
		Unit:         o.Unit,
		PricePerUnit: o.PricePerUnit.Amount,
		TotalPrice:   o.TotalPrice.Amount,
		Currency:     o.PricePerUnit.Currency.String(),
		CreatedAt:    o.CreatedAt,
		Status:       string(o.Status),
	}
}

func (p OrderPayload) ToDomain() (domain.Order, error) {
	parsedCurrency, err := currency.ParseISO(p.Currency)
	if err != nil {
		return domain.Order{}, fmt.Errorf("currency[%s] is not valid: %w", p.Currency, err)
	}

	status, err := domain.ToOrderStatus(p.Status)
	if err != nil {
		return domain.Order{}, fmt.Errorf("domain.ToOrderStatus: %w", err)
	}

	return domain.Order{
		ID:           p.ID,
		NeedID:       p.NeedID,
		OfferID:      p.OfferID,
		BuyerID:      p.BuyerID,
		BuyerName:    p.BuyerName,
		SellerID:     p.SellerID,
		SellerName:   p.SellerName,
		ProductSKU:   p.ProductSKU,
		ProductName:  p.ProductName,
		Quantity:     p.Quantity,
		Unit:         p.Unit,
		PricePerUnit: domain.Money{Amount: p.PricePerUnit, Currency: parsedCurrency},
		TotalPrice:   domain.Money{Amount: p.TotalPrice, Currency: parsedCurrency},
		CreatedAt:    p.CreatedAt,
		Status:       status,
	}, nil
}
