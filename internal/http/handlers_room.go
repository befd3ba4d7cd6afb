package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"roomledger/internal/core"
)

type roomResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"inviteCode"`
	CreatedAt  string `json:"createdAt"`
}

type memberResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsManager bool   `json:"isManager"`
	RoomID    string `json:"roomId"`
	CreatedAt string `json:"createdAt"`
}

func toRoomResponse(room core.Room) roomResponse {
	return roomResponse{
		ID:         room.ID,
		Name:       room.Name,
		InviteCode: room.InviteCode,
		CreatedAt:  room.CreatedAt.Format(time.RFC3339),
	}
}

func toMemberResponse(m core.Member) memberResponse {
	return memberResponse{
		ID:        m.ID,
		Name:      m.Name,
		IsManager: m.IsManager,
		RoomID:    m.RoomID,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	room, err := s.rooms.CreateRoom(r.Context(), req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toRoomResponse(room))
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode string `json:"inviteCode"`
		Name       string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	member, err := s.rooms.JoinRoom(r.Context(), req.InviteCode, req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toMemberResponse(member))
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.rooms.GetRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toRoomResponse(room))
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.rooms.ListMembers(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	respondJSON(w, http.StatusOK, out)
}
