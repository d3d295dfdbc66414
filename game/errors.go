package game

import "errors"

var (
	ErrNameInvalid      = errors.New("Invalid room name")
	ErrNameTaken        = errors.New("Room name already exists")
	ErrRoomNotFound     = errors.New("Room not found")
	ErrBadPin           = errors.New("Invalid PIN")
	ErrInProgress       = errors.New("Game is already in progress")
	ErrRoomFull         = errors.New("Room is full")
	ErrNotEnoughPlayers = errors.New("Not enough players to start the game")
	ErrNotHost          = errors.New("Only host can kick players")
	ErrVotingNotActive  = errors.New("Voting not active")
)
