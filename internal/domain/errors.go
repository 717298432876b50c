package domain

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrAlreadyJoined   = errors.New("user already joined the room")
	ErrNotInRoom       = errors.New("user not in the room")
	ErrInvalidInvite   = errors.New("invalid or expired invite code")
	ErrNotRoomOwner    = errors.New("only the room creator can do this")
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyMessage    = errors.New("empty message")
	ErrMessageTooLong  = errors.New("message too long")
	ErrLetterNotFound  = errors.New("letter not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidTheme    = errors.New("unknown letter theme")
	ErrInvalidReaction = errors.New("unknown reaction kind")
)
