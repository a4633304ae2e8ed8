package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"farmledger/batches"
	"farmledger/ledger"
	"farmledger/models"
	"farmledger/utils"
)

type plantingRequest struct {
	ZoneID       utils.FlexString `json:"zoneId"`
	Date         string           `json:"date"`
	CropVariety  string           `json:"cropVariety"`
	SeedQuantity utils.FlexFloat  `json:"seedQuantity"`
	AreaCovered  utils.FlexFloat  `json:"areaCovered"`
}

type inputRequest struct {
	ZoneID        utils.FlexString `json:"zoneId"`
	Date          string           `json:"date"`
	InputCategory string           `json:"inputCategory"`
	ProductName   string           `json:"productName"`
	Quantity      utils.FlexFloat  `json:"quantity"`
	Unit          string           `json:"unit"`
}

type harvestRequest struct {
	ZoneID            utils.FlexString `json:"zoneId"`
	Date              string           `json:"date"`
	YieldAmount       utils.FlexFloat  `json:"yieldAmount"`
	MarketDestination string           `json:"marketDestination"`
}

func (h *Handler) CreatePlantingLog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req plantingRequest
	if err := decode(w, r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	seeds, err := number(req.SeedQuantity, "seedQuantity")
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	area, err := number(req.AreaCovered, "areaCovered")
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	batch, err := h.registry.OpenBatch(r.Context(), batches.OpenBatchInput{
		OwnerID:      utils.GetUserIDFromRequest(r),
		ZoneID:       string(req.ZoneID),
		Date:         req.Date,
		CropVariety:  req.CropVariety,
		SeedQuantity: seeds,
		AreaCovered:  area,
	})
	if err != nil {
		h.fail(w, r, "create planting log", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"message": "Planting log created successfully",
		"batch":   batch,
	})
}

func (h *Handler) CreateInputLog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req inputRequest
	if err := decode(w, r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	qty, err := number(req.Quantity, "quantity")
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	entry, err := h.ledger.AppendInputLog(r.Context(), ledger.InputLogInput{
		OwnerID:     utils.GetUserIDFromRequest(r),
		ZoneID:      string(req.ZoneID),
		Date:        req.Date,
		Category:    models.InputCategory(req.InputCategory),
		ProductName: req.ProductName,
		Quantity:    qty,
		Unit:        models.Unit(req.Unit),
	})
	if err != nil {
		h.fail(w, r, "create input log", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"message":  "Input log created successfully",
		"inputLog": entry,
	})
}

func (h *Handler) CreateHarvestLog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req harvestRequest
	if err := decode(w, r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	yield, err := number(req.YieldAmount, "yieldAmount")
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	entry, err := h.ledger.AppendHarvestLog(r.Context(), ledger.HarvestLogInput{
		OwnerID:           utils.GetUserIDFromRequest(r),
		ZoneID:            string(req.ZoneID),
		Date:              req.Date,
		YieldAmount:       yield,
		MarketDestination: req.MarketDestination,
	})
	if err != nil {
		h.fail(w, r, "create harvest log", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"message":    "Harvest log created successfully and crop batch closed",
		"harvestLog": entry,
	})
}

func (h *Handler) MarkHarvestTransported(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	entry, err := h.ledger.UpdateHarvestStatus(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("id"))
	if err != nil {
		h.fail(w, r, "update harvest status", err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":    "Harvest log marked as transported",
		"harvestLog": entry,
	})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	view, err := h.history.GetHistory(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		h.fail(w, r, "get history", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, view)
}

func (h *Handler) GetRecentActivity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	recent, err := h.history.GetRecentActivity(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		h.fail(w, r, "get recent activity", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"recentActivity": recent})
}
