package network

const (
	MsgTypeHeartbeat = 1

	MsgTypeJoinQueue  = 101
	MsgTypeLeaveRoom  = 102
	MsgTypeQueueAck   = 103

	MsgTypeChooseSuite = 201
	MsgTypeSubmitPlay  = 202
	MsgTypeNominateMVP = 203

	MsgTypeRoomStatus  = 301
	MsgTypeHandDealt   = 302
	MsgTypeSuitePrompt = 303
	MsgTypeRoundStart  = 304
	MsgTypeRoundReveal = 305
	MsgTypeMVPPrompt   = 306
	MsgTypeGameStart   = 307
	MsgTypeGameEnd     = 308

	MsgTypeError        = 400
	MsgTypeServerNotice = 401
)
