package application

import "github.com/mikidaniel85/warehouse-pbb/internal/domain"

// ToItemDTO converts a domain Item to ItemDTO
func ToItemDTO(item *domain.Item) *ItemDTO {
	if item == nil {
		return nil
	}
	return &ItemDTO{
		ID:              item.ID,
		Description:     item.Description,
		InternalSKU:     item.InternalSKU,
		ManufacturerSKU: item.ManufacturerSKU,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
}

// ToItemDTOs converts a slice of items
func ToItemDTOs(items []*domain.Item) []*ItemDTO {
	out := make([]*ItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, ToItemDTO(item))
	}
	return out
}

// ToLocationDTO converts a domain Location to LocationDTO
func ToLocationDTO(loc *domain.Location) *LocationDTO {
	if loc == nil {
		return nil
	}
	return &LocationDTO{
		ID:        loc.ID,
		ItemID:    loc.ItemID,
		ItemName:  loc.ItemName,
		Warehouse: loc.Warehouse,
		Row:       loc.Row,
		Column:    loc.Column,
		Floor:     loc.Floor,
		Quantity:  loc.Quantity,
		UpdatedAt: loc.UpdatedAt,
	}
}

// ToLocationDTOs converts a slice of locations
func ToLocationDTOs(locations []*domain.Location) []*LocationDTO {
	out := make([]*LocationDTO, 0, len(locations))
	for _, loc := range locations {
		out = append(out, ToLocationDTO(loc))
	}
	return out
}

// ToRequestDTO converts a domain Request to RequestDTO
func ToRequestDTO(req *domain.Request) *RequestDTO {
	if req == nil {
		return nil
	}
	return &RequestDTO{
		ID:         req.ID,
		Requester:  req.Requester,
		ItemName:   req.ItemName,
		LocationID: req.LocationID,
		Quantity:   req.Quantity,
		Reason:     req.Reason,
		Status:     string(req.Status),
		DecidedBy:  req.DecidedBy,
		DecidedAt:  req.DecidedAt,
		CreatedAt:  req.CreatedAt,
	}
}

// ToRequestDTOs converts a slice of requests
func ToRequestDTOs(requests []*domain.Request) []*RequestDTO {
	out := make([]*RequestDTO, 0, len(requests))
	for _, req := range requests {
		out = append(out, ToRequestDTO(req))
	}
	return out
}

// ToWarehouseDTO converts a domain Warehouse to WarehouseDTO
func ToWarehouseDTO(w *domain.Warehouse) *WarehouseDTO {
	if w == nil {
		return nil
	}
	return &WarehouseDTO{
		ID:        w.ID,
		Name:      w.Name,
		Sentinel:  w.Sentinel,
		CreatedAt: w.CreatedAt,
	}
}

// ToUserDTO converts a directory entry to UserDTO
func ToUserDTO(u *domain.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		Email:     u.Email,
		Role:      string(u.Role),
		Approved:  u.Approved,
		CreatedAt: u.CreatedAt,
	}
}

// ToAuditRecordDTO converts an audit record
func ToAuditRecordDTO(r *domain.AuditRecord) *AuditRecordDTO {
	if r == nil {
		return nil
	}
	return &AuditRecordDTO{
		Timestamp: r.Timestamp,
		Actor:     r.Actor,
		Role:      string(r.Role),
		Action:    string(r.Action),
		Detail:    r.Detail,
	}
}
