package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BatchStatus string

const (
	BatchActive    BatchStatus = "Active"
	BatchHarvested BatchStatus = "Harvested"
	// BatchFailed is reserved for crop-loss reporting; nothing in the API sets it.
	BatchFailed BatchStatus = "Failed"
)

// DefaultOrganicLevel is the organic score every new batch starts with.
const DefaultOrganicLevel = 100

// CropBatch is one planting-to-harvest cycle in a single zone.
type CropBatch struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty"       json:"id"`
	AuthID              string             `bson:"authId"              json:"authId"`
	ZoneID              string             `bson:"zoneId"              json:"zoneId"`
	BatchID             string             `bson:"batchId"             json:"batchId"`
	Date                time.Time          `bson:"date"                json:"date"`
	CropVariety         string             `bson:"cropVariety"         json:"cropVariety"`
	SeedQuantity        float64            `bson:"seedQuantity"        json:"seedQuantity"`
	AreaCovered         float64            `bson:"areaCovered"         json:"areaCovered"`
	Status              BatchStatus        `bson:"status"              json:"status"`
	CurrentOrganicLevel float64            `bson:"currentOrganicLevel" json:"currentOrganicLevel"`
	CreatedAt           time.Time          `bson:"createdAt"           json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt"           json:"updatedAt"`
}

func (b *CropBatch) IsActive() bool {
	return b != nil && b.Status == BatchActive
}
