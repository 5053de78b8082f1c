package messenger

import "go.uber.org/zap"

// exchange is a durable topic exchange; events are routed by their type,
// eg "Sale" or "Mint", so "#" binds every event.
type exchange struct {
	Name string
	Kind string
}

func eventExchange(name string) exchange {
	return exchange{Name: name, Kind: "topic"}
}

func (e exchange) declare(ch Channel) error {
	if err := ch.ExchangeDeclare(e.Name, e.Kind, true, false, false, false, nil); err != nil {
		zap.L().With(zap.String("exchange", e.Name), zap.Error(err)).Error("[Queue] Exchange Declare")
		return err
	}

	return nil
}
