package network

const (
	MsgTypeHeartbeat    = 1
	MsgTypeLeaveRoom    = 102
	MsgTypeCreateRoom   = 103
	MsgTypePlayerAction = 202
	MsgTypeGameStart    = 303
	MsgTypeGameSync     = 304
	MsgTypeGameEnd      = 305
	MsgTypeError        = 400
)
