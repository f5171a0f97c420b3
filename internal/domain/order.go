package domain

import "time"

// Order statuses, in fulfilment order.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// OrderStatuses lists every accepted status.
var OrderStatuses = []string{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}

type OrderLine struct {
	ItemID   string  `json:"productId"`
	Name     string  `json:"productName"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Size     string  `json:"size"`
}

type Order struct {
	ID            string      `json:"id"`
	CustomerID    string      `json:"customerId"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	Status        string      `json:"status"`
	Total         float64     `json:"total"`
	Date          time.Time   `json:"date"`
	Items         []OrderLine `json:"items"`
}

type Customer struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	OrderCount    int        `json:"orderCount"`
	TotalSpent    float64    `json:"totalSpent"`
	JoinDate      time.Time  `json:"joinDate"`
	LastOrderDate *time.Time `json:"lastOrderDate"`
}
