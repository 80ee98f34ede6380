package wishlist

import (
	"time"

	"github.com/aarvika/storefront-backend/internal/products"
	"github.com/google/uuid"
)

// ItemDTO pairs a liked product with when it was liked.
type ItemDTO struct {
	Product products.ProductSummary `json:"product"`
	LikedAt time.Time               `json:"liked_at"`
}

// ToggleResultDTO reports the post-toggle membership state along with the
// re-fetched wishlist, so the client replaces its copy wholesale.
type ToggleResultDTO struct {
	ProductID uuid.UUID `json:"product_id"`
	Liked     bool      `json:"liked"`
	Items     []ItemDTO `json:"items"`
}
