package handlers

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"farmledger/auth"
	"farmledger/models"
	"farmledger/utils"
)

type registerRequest struct {
	Username  utils.FlexString `json:"username"`
	ContactNo utils.FlexString `json:"contactNo"`
	Email     string           `json:"email"`
	Password  string           `json:"password"`
	FarmName  string           `json:"farmName"`
	TotalArea utils.FlexString `json:"totalArea"`
	Location  string           `json:"location"`
	SensorID  utils.FlexString `json:"sensorId"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerRequest
	if err := decode(w, r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	farmer, err := h.auth.Register(r.Context(), auth.RegisterInput{
		Username:  string(req.Username),
		ContactNo: string(req.ContactNo),
		Email:     req.Email,
		Password:  req.Password,
		FarmName:  req.FarmName,
		TotalArea: string(req.TotalArea),
		Location:  req.Location,
		SensorID:  string(req.SensorID),
	})
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"message": "Farmer registered successfully",
		"farmer":  publicFarmer(farmer),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":   "Login successful",
		"token":     res.Token,
		"expiresAt": res.ExpiresAt.UTC().Format(time.RFC3339),
		"farmer":    publicFarmer(res.Farmer),
	})
}

func publicFarmer(f *models.FarmerProfile) utils.M {
	return utils.M{
		"id":        f.ID.Hex(),
		"authId":    f.AuthID,
		"username":  f.Username,
		"email":     f.Email,
		"contactNo": f.ContactNo,
		"farmName":  f.FarmName,
		"totalArea": f.TotalArea,
		"location":  f.Location,
		"sensorId":  f.SensorID,
	}
}
