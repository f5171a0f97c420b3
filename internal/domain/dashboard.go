package domain

// DashboardStats summarizes operational counts for the admin overview.
type DashboardStats struct {
	ProductCount  int64   `json:"productCount"`
	LowStockCount int64   `json:"lowStockCount"`
	OrderCount    int64   `json:"orderCount"`
	CustomerCount int64   `json:"customerCount"`
	PendingOrders int64   `json:"pendingOrders"`
	Revenue       float64 `json:"revenue"`
	AvgOrderValue float64 `json:"avgOrderValue"`
}
