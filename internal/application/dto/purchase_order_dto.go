package dto

import "time"

// CreatePurchaseOrderRequest entrada para crear una orden de compra (queda en DRAFT).
type CreatePurchaseOrderRequest struct {
	Number string                     `json:"number" validate:"required,max=50"`
	Lines  []PurchaseOrderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// PurchaseOrderLineRequest línea pedida.
type PurchaseOrderLineRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
}

// ReceivePurchaseOrderRequest body para POST /api/purchase-orders/:id/receipts.
type ReceivePurchaseOrderRequest struct {
	Lines []ReceiptLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ReceiptLineRequest línea recibida.
type ReceiptLineRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gt=0"`
}

// PurchaseOrderResponse salida de una orden de compra.
type PurchaseOrderResponse struct {
	ID        string                      `json:"id"`
	Number    string                      `json:"number"`
	Status    string                      `json:"status"`
	Lines     []PurchaseOrderLineResponse `json:"lines"`
	Version   int64                       `json:"version"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// PurchaseOrderLineResponse línea con lo pedido, lo recibido y lo reservado por recepciones en curso.
type PurchaseOrderLineResponse struct {
	LineID           string `json:"line_id"`
	ItemID           string `json:"item_id"`
	QuantityOrdered  int64  `json:"quantity_ordered"`
	QuantityReceived int64  `json:"quantity_received"`
	QuantityReserved int64  `json:"quantity_reserved"`
}
