package catalog

type CreateProductRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	ContainerSize  string  `json:"container_size" validate:"required,max=50"`
	BottlesPerCase int     `json:"bottles_per_case" validate:"required,gt=0"`
	UnitCost       float64 `json:"unit_cost" validate:"gte=0"`
	SellingPrice   float64 `json:"selling_price" validate:"gte=0"`
}

type UpdateProductRequest struct {
	Name           *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	ContainerSize  *string  `json:"container_size,omitempty" validate:"omitempty,max=50"`
	BottlesPerCase *int     `json:"bottles_per_case,omitempty" validate:"omitempty,gt=0"`
	UnitCost       *float64 `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
	SellingPrice   *float64 `json:"selling_price,omitempty" validate:"omitempty,gte=0"`
	IsActive       *bool    `json:"is_active,omitempty"`
}

type ListProductsRequest struct {
	Search   string `json:"search"`
	IsActive *bool  `json:"is_active,omitempty"`
	Limit    int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int    `json:"offset" validate:"gte=0"`
}

type ListProductsResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}
