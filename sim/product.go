package sim

import "fmt"

// Product describes a stocked good: its unit sale price and the cost to hold
// one unit in storage for one tick.
type Product struct {
	ID          string
	Name        string
	UnitCost    float64
	StorageCost float64
}

// NewProduct validates and builds a Product.
func NewProduct(id, name string, unitCost, storageCost float64) (*Product, error) {
	if id == "" {
		return nil, fmt.Errorf("product: id cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("product: name cannot be empty")
	}
	if unitCost < 0 {
		return nil, fmt.Errorf("product: unit cost cannot be negative")
	}
	if storageCost < 0 {
		return nil, fmt.Errorf("product: storage cost cannot be negative")
	}
	return &Product{ID: id, Name: name, UnitCost: unitCost, StorageCost: storageCost}, nil
}

func (p *Product) String() string {
	return fmt.Sprintf("%s ($%.2f/unit, $%.2f/storage)", p.Name, p.UnitCost, p.StorageCost)
}
