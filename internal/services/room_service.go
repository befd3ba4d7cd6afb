// Package services orchestrates ledger operations across storage, the event
// queue and the cached derived views.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"roomledger/internal/core"
	"roomledger/internal/storage"
)

var ErrEmptyName = errors.New("empty name")

// RoomService handles room lifecycle and member enrollment.
type RoomService struct {
	storage *storage.SQLiteRepository
}

func NewRoomService(storage *storage.SQLiteRepository) *RoomService {
	return &RoomService{storage: storage}
}

func (s *RoomService) CreateRoom(ctx context.Context, name string) (core.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Room{}, ErrEmptyName
	}

	room := core.Room{
		Name:       name,
		InviteCode: newInviteCode(),
	}
	if err := s.storage.CreateRoom(ctx, &room); err != nil {
		return core.Room{}, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, roomID string) (core.Room, error) {
	return s.storage.GetRoom(ctx, roomID)
}

// JoinRoom enrolls a member via invite code. The first member to join a room
// becomes its manager.
func (s *RoomService) JoinRoom(ctx context.Context, inviteCode, memberName string) (core.Member, error) {
	memberName = strings.TrimSpace(memberName)
	if memberName == "" {
		return core.Member{}, ErrEmptyName
	}

	room, err := s.storage.GetRoomByInviteCode(ctx, strings.ToUpper(strings.TrimSpace(inviteCode)))
	if err != nil {
		return core.Member{}, err
	}

	hasMembers, err := s.storage.RoomHasMembers(ctx, room.ID)
	if err != nil {
		return core.Member{}, fmt.Errorf("check room members: %w", err)
	}

	member := core.Member{
		Name:      memberName,
		IsManager: !hasMembers,
		RoomID:    room.ID,
	}
	if err := s.storage.CreateMember(ctx, &member); err != nil {
		return core.Member{}, fmt.Errorf("create member: %w", err)
	}
	return member, nil
}

func (s *RoomService) ListMembers(ctx context.Context, roomID string) ([]core.Member, error) {
	return s.storage.ListMembers(ctx, roomID)
}

func (s *RoomService) GetMember(ctx context.Context, memberID string) (core.Member, error) {
	return s.storage.GetMember(ctx, memberID)
}

const inviteCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newInviteCode builds a code like ROOM-7KQ2XM. The charset drops the easily
// confused characters 0, O, 1 and I.
func newInviteCode() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		seed := time.Now().UnixNano()
		for i := range buf {
			buf[i] = byte(seed >> (8 * i))
		}
	}
	for i, b := range buf {
		buf[i] = inviteCodeCharset[int(b)%len(inviteCodeCharset)]
	}
	return "ROOM-" + string(buf)
}
