package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FarmerProfile is the local profile bound to an identity-provider user.
type FarmerProfile struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"       json:"id"`
	AuthID    string             `bson:"authId"              json:"authId"`
	Username  string             `bson:"username"            json:"username"`
	ContactNo string             `bson:"contactNo"           json:"contactNo"`
	Email     string             `bson:"email"               json:"email"`
	FarmName  string             `bson:"farmName,omitempty"  json:"farmName,omitempty"`
	TotalArea string             `bson:"totalArea,omitempty" json:"totalArea,omitempty"`
	Location  string             `bson:"location,omitempty"  json:"location,omitempty"`
	SensorID  string             `bson:"sensorId,omitempty"  json:"sensorId,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"           json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"           json:"updatedAt"`
}
