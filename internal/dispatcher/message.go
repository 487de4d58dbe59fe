package dispatcher

// MessageKind selects how the terminal styles a message
type MessageKind int

const (
	MessageInfo MessageKind = iota
	MessageSuccess
	MessageError
)

const (
	fetchFailedText   = "Error loading jobs. Please try again."
	swipeFailedText   = "Error processing swipe. Please try again."
	actionPendingText = "Please wait, your last action is still in progress."
)

// Message is a transient notice shown to the user until it expires
type Message struct {
	Seq  int
	Kind MessageKind
	Text string
	Err  error
}

// notify replaces the current message and schedules its expiry
func (d *Dispatcher) notify(kind MessageKind, text string, err error) Effect {
	d.msgSeq++
	d.state.Message = &Message{Seq: d.msgSeq, Kind: kind, Text: text, Err: err}
	return d.timerEffect(EffectExpireMessage, d.messageTTL, MessageExpired{Seq: d.msgSeq})
}

func (d *Dispatcher) expire(seq int) {
	if d.state.Message != nil && d.state.Message.Seq == seq {
		d.state.Message = nil
	}
}
