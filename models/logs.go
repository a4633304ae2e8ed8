package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InputCategory string

const (
	OrganicFertilizer  InputCategory = "Organic Fertilizer"
	ChemicalFertilizer InputCategory = "Chemical Fertilizer"
	Pesticide          InputCategory = "Pesticide"
)

func (c InputCategory) Valid() bool {
	switch c {
	case OrganicFertilizer, ChemicalFertilizer, Pesticide:
		return true
	}
	return false
}

type Unit string

const (
	UnitKg    Unit = "kg"
	UnitLitre Unit = "L"
)

func (u Unit) Valid() bool {
	return u == UnitKg || u == UnitLitre
}

// InputLog records one fertilizer or pesticide application. Never updated.
type InputLog struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"  json:"id"`
	AuthID        string             `bson:"authId"         json:"authId"`
	ZoneID        string             `bson:"zoneId"         json:"zoneId"`
	BatchID       string             `bson:"batchId"        json:"batchId"`
	Date          time.Time          `bson:"date"           json:"date"`
	InputCategory InputCategory      `bson:"inputCategory"  json:"inputCategory"`
	ProductName   string             `bson:"productName"    json:"productName"`
	Quantity      float64            `bson:"quantity"       json:"quantity"`
	Unit          Unit               `bson:"unit"           json:"unit"`
	CreatedAt     time.Time          `bson:"createdAt"      json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"      json:"updatedAt"`
}

type HarvestStatus string

const (
	HarvestHarvested   HarvestStatus = "Harvested"
	HarvestTransported HarvestStatus = "Transported"
)

// HarvestLog is the terminal event of a batch.
type HarvestLog struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"     json:"id"`
	AuthID            string             `bson:"authId"            json:"authId"`
	ZoneID            string             `bson:"zoneId"            json:"zoneId"`
	BatchID           string             `bson:"batchId"           json:"batchId"`
	Date              time.Time          `bson:"date"              json:"date"`
	PlantedDate       time.Time          `bson:"plantedDate"       json:"plantedDate"`
	CropVariety       string             `bson:"cropVariety"       json:"cropVariety"`
	YieldAmount       float64            `bson:"yieldAmount"       json:"yieldAmount"` // kg
	MarketDestination string             `bson:"marketDestination" json:"marketDestination"`
	Status            HarvestStatus      `bson:"status"            json:"status"`
	CreatedAt         time.Time          `bson:"createdAt"         json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"         json:"updatedAt"`
}
