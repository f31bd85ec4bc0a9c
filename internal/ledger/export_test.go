package ledger

var (
	ForwardFill     = forwardFill
	GroupLastByDate = groupLastByDate
)
