package api

import "github.com/colocapp/coloc-server/internal/service"

// Services groups the domain services the handlers call.
type Services struct {
	Flats        *service.FlatService
	JoinRequests *service.JoinRequestService
	Events       *service.EventService
}
