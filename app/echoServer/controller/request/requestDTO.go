package request

import "bookswap/model"

type UpdateStatusReq struct {
	Status model.RequestStatus `json:"status" validate:"required,oneof=approved rejected returned"`
}
