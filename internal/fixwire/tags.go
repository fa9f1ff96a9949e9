package fixwire

// Standard FIX 4.4 tags used by the proxy. Only the subset the proxy
// actually reads or writes is declared; this is not a complete dictionary.
const (
	TagBeginString  = 8
	TagBodyLength   = 9
	TagMsgType      = 35
	TagSenderCompID = 49
	TagTargetCompID = 56
	TagMsgSeqNum    = 34
	TagSendingTime  = 52
	TagCheckSum     = 10

	TagEncryptMethod   = 98
	TagHeartBtInt      = 108
	TagResetSeqNumFlag = 141
	TagUsername        = 553
	TagPassword        = 554
	TagRawData         = 96
	TagRawDataLength   = 95
	TagTestReqID       = 112
	TagText            = 58
	TagRefSeqNum       = 45
	TagRefTagID        = 371
	TagRefMsgType      = 372
	TagSessionRejectReason = 373
	TagBeginSeqNo      = 7
	TagEndSeqNo        = 16

	TagSymbol         = 55
	TagSecurityReqID  = 320
	TagSecurityRespID = 322
	TagSecurityExchange = 207

	TagClOrdID   = 11
	TagOrigClOrdID = 41
	TagOrderID   = 37
	TagExecID    = 17
	TagOrdStatus = 39
	TagOrdType   = 40
	TagSide      = 54
	TagOrderQty  = 38
	TagPrice     = 44
	TagMassStatusReqID  = 584
	TagMassCancelReqID  = 530
	TagMassCancelRespID = 531

	TagMDReqID        = 262
	TagSubscriptionReqType = 263
	TagMarketDepth    = 264
	TagNoRelatedSym   = 146

	TagBusinessRejectRefID = 379
	TagBusinessRejectReason = 380

	TagNoPartyIDs  = 453
	TagPartyID     = 448
	TagPartyIDSource = 447
	TagPartyRole   = 452
)

// Party ID source and role values the proxy stamps on outbound orders,
// per §4.3 step 3.
const (
	PartyIDSourceProprietary = "D"
	PartyRoleClientID             = 3
	PartyRoleOrderOriginationTrader = 11
)

// MsgType values for the administrative and business subset described
// in §6.
const (
	MsgTypeLogon                         = "A"
	MsgTypeLogout                        = "5"
	MsgTypeHeartbeat                      = "0"
	MsgTypeTestRequest                    = "1"
	MsgTypeResendRequest                  = "2"
	MsgTypeReject                         = "3"
	MsgTypeNewOrderSingle                 = "D"
	MsgTypeOrderCancelRequest             = "F"
	MsgTypeOrderCancelReplaceRequest      = "G"
	MsgTypeOrderStatusRequest             = "H"
	MsgTypeBusinessMessageReject          = "j"
	MsgTypeMarketDataRequest              = "V"
	MsgTypeMarketDataSnapshotFullRefresh  = "W"
	MsgTypeMarketDataIncrementalRefresh   = "X"
	MsgTypeMarketDataRequestReject        = "Y"
	MsgTypeExecutionReport                = "8"
	MsgTypeOrderCancelReject              = "9"
	MsgTypeSecurityListRequest            = "x"
	MsgTypeSecurityList                   = "y"
	MsgTypeSecurityDefinitionRequest      = "c"
	MsgTypeSecurityDefinition             = "d"
	MsgTypeOrderMassStatusRequest         = "AF"
	MsgTypeOrderMassCancelRequest         = "q"
	MsgTypeOrderMassCancelReport          = "r"
)
