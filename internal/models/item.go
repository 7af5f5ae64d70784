package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Condition describes the state of a catalog item. Updates replace the whole
// subdocument, they never merge individual fields into an existing one.
type Condition struct {
	State       string `bson:"state" json:"state"`
	Description string `bson:"description" json:"description"`
}

// Item is a document in the "items" collection. The collection holds both
// catalog records and published listings, so most fields are optional; a
// listing carries name/image/price plus the publisher identity, a catalog
// record carries the brand/model/pricing block.
type Item struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name          string             `bson:"name,omitempty" json:"name,omitempty"`
	Brand         string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Model         string             `bson:"model,omitempty" json:"model,omitempty"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	OriginalPrice string             `bson:"original_price,omitempty" json:"original_price,omitempty"`
	SalePrice     string             `bson:"sale_price,omitempty" json:"sale_price,omitempty"`
	VendorLink    string             `bson:"vendor_link,omitempty" json:"vendor_link,omitempty"`
	Condition     *Condition         `bson:"condition,omitempty" json:"condition,omitempty"`

	// Image is a self-contained data URL, stored as given and never
	// re-validated server-side. Empty means no image was attached.
	Image string `bson:"image,omitempty" json:"image,omitempty"`

	// Listing fields, captured at creation time and immutable thereafter.
	Price         string `bson:"price,omitempty" json:"price,omitempty"`
	CreatedByPk   string `bson:"createdByPk,omitempty" json:"createdByPk,omitempty"`
	CreatedByName string `bson:"createdByName,omitempty" json:"createdByName,omitempty"`
	WalletAddress string `bson:"walletAddress,omitempty" json:"walletAddress,omitempty"`

	// PublishedDate is assigned by the service on create.
	PublishedDate time.Time `bson:"published_date,omitempty" json:"published_date,omitempty"`
}

// InsertAck is the write acknowledgment returned for a create.
type InsertAck struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// UpdateAck is the write acknowledgment returned for an update.
// A missing or malformed id yields zero counts rather than an error.
type UpdateAck struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// DeleteAck is the acknowledgment returned for a delete, deletedCount 0 or 1.
type DeleteAck struct {
	DeletedCount int64 `json:"deletedCount"`
}
