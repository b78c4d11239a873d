package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

var ErrInvalidSignature = errors.New("invalid payment signature")

// PaymentOrder — заказ, созданный в платёжном шлюзе до списания средств.
// AmountCents передается в минорных единицах, как того требует шлюз
type PaymentOrder struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"` // публичный ключ для виджета на клиенте
}

// Gateway абстрагирует платёжный шлюз: создание заказа и проверка подписи
// колбэка об успешной оплате
type Gateway interface {
	CreateOrder(amountCents int64, receipt string) (*PaymentOrder, error)
	VerifySignature(orderID, paymentID, signature string) error
}

type razorpayGateway struct {
	client    *razorpay.Client
	keyID     string
	keySecret string
	currency  string
}

func NewRazorpayGateway(keyID, keySecret, currency string) Gateway {
	return &razorpayGateway{
		client:    razorpay.NewClient(keyID, keySecret),
		keyID:     keyID,
		keySecret: keySecret,
		currency:  currency,
	}
}

func (g *razorpayGateway) CreateOrder(amountCents int64, receipt string) (*PaymentOrder, error) {
	data := map[string]interface{}{
		"amount":   amountCents,
		"currency": g.currency,
		"receipt":  receipt,
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway order: %w", err)
	}

	id, ok := body["id"].(string)
	if !ok {
		return nil, errors.New("gateway response has no order id")
	}

	return &PaymentOrder{
		ID:          id,
		AmountCents: amountCents,
		Currency:    g.currency,
		KeyID:       g.keyID,
	}, nil
}

// VerifySignature проверяет подпись успешного платежа:
// HMAC-SHA256(order_id + "|" + payment_id, key_secret)
func (g *razorpayGateway) VerifySignature(orderID, paymentID, signature string) error {
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}
