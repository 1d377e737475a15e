package game

import (
	"sync"

	"go.uber.org/zap"
)

// Registry owns every live room, keyed by room id. Rooms are created
// lazily on first join and removed when their game ends.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	opts   Options
	logger *zap.Logger

	// created counts rooms ever made, offsetting a fixed base seed so
	// concurrent rooms never share an RNG stream.
	created int64
}

// NewRegistry creates an empty room registry. All rooms it creates share
// the given options.
func NewRegistry(opts Options, logger *zap.Logger) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		opts:   opts,
		logger: logger,
	}
}

// GetOrCreate returns the room with the given id, creating it when absent.
func (reg *Registry) GetOrCreate(roomID string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if room, ok := reg.rooms[roomID]; ok {
		return room
	}
	opts := reg.opts
	if opts.Seed != 0 {
		opts.Seed += reg.created
	}
	reg.created++
	room := NewRoom(roomID, opts, reg.logger)
	reg.rooms[roomID] = room
	reg.logger.Info("room created", zap.String("room_id", roomID))
	return room
}

// Get returns the room with the given id.
func (reg *Registry) Get(roomID string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[roomID]
	return room, ok
}

// FindByPlayer returns the room containing the given player id.
func (reg *Registry) FindByPlayer(playerID string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for _, room := range reg.rooms {
		if room.HasPlayer(playerID) {
			return room, true
		}
	}
	return nil, false
}

// Remove deletes the room from the registry.
func (reg *Registry) Remove(roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, roomID)
	reg.logger.Info("room removed", zap.String("room_id", roomID))
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
