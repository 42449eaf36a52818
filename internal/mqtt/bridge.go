package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jkaflik/sunshade2mqtt/internal/button"
	"github.com/jkaflik/sunshade2mqtt/internal/cover"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	positionStateIncreasing = "increasing"
	positionStateDecreasing = "decreasing"
	positionStateStopped    = "stopped"

	payloadTrue  = "true"
	payloadFalse = "false"
)

// Bridge is the remote smart-home integration layer: it exposes the
// position/target/state characteristic triple plus the momentary hold and
// recalibrate flags over MQTT, and feeds classified button events from the
// external gesture recognizer into the dispatcher.
type Bridge struct {
	mqtt       mqtt.Client
	dispatcher *cover.Dispatcher
	name       string

	PositionTopic    string
	TargetTopic      string
	StateTopic       string
	IndicatorTopic   string
	ObstructionTopic string
	MetadataTopic    string

	HoldTopic        string
	RecalibrateTopic string

	SetPositionTopic    string
	SetHoldTopic        string
	SetRecalibrateTopic string

	buttonTopics map[string]button.ID
}

func NewBridge(client mqtt.Client, name string, dispatcher *cover.Dispatcher) *Bridge {
	b := &Bridge{mqtt: client, dispatcher: dispatcher, name: name}

	prefix := fmt.Sprintf("sunshade2mqtt/%s", name)
	b.PositionTopic = prefix + "/position"
	b.TargetTopic = prefix + "/target"
	b.StateTopic = prefix + "/state"
	b.IndicatorTopic = prefix + "/indicator"
	b.ObstructionTopic = prefix + "/obstruction"
	b.MetadataTopic = prefix + "/metadata"
	b.HoldTopic = prefix + "/hold"
	b.RecalibrateTopic = prefix + "/recalibrate"
	b.SetPositionTopic = prefix + "/position/set"
	b.SetHoldTopic = prefix + "/hold/set"
	b.SetRecalibrateTopic = prefix + "/recalibrate/set"

	b.buttonTopics = map[string]button.ID{
		prefix + "/buttons/open/event":  button.Open,
		prefix + "/buttons/stop/event":  button.Stop,
		prefix + "/buttons/close/event": button.Close,
	}

	return b
}

func (b *Bridge) Name() string {
	return b.name
}

func (b *Bridge) Client() mqtt.Client {
	return b.mqtt
}

func (b *Bridge) SetMetadata(value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if token := b.mqtt.Publish(b.MetadataTopic, 0, true, payload); token.Wait() && token.Error() != nil {
		return errors.Wrapf(token.Error(), "%s: MQTT metadata publish failed", b.name)
	}

	return nil
}

// PublishUpdate echoes a motion state/position notification as the
// characteristic pair expected by the remote layer.
func (b *Bridge) PublishUpdate(state cover.MotionState, position int) {
	b.publishRetained(b.StateTopic, positionStatePayload(state))
	b.publishRetained(b.PositionTopic, strconv.Itoa(position))
}

func (b *Bridge) PublishTarget(target int) {
	b.publishRetained(b.TargetTopic, strconv.Itoa(target))
}

func (b *Bridge) PublishIndicator(code cover.IndicatorCode) {
	b.publishRetained(b.IndicatorTopic, code.String())
}

func positionStatePayload(state cover.MotionState) string {
	switch state {
	case cover.MotionOpening:
		return positionStateIncreasing
	case cover.MotionClosing:
		return positionStateDecreasing
	default:
		return positionStateStopped
	}
}

func (b *Bridge) Subscribe(ctx context.Context) error {
	subscriptions := map[string]mqtt.MessageHandler{
		b.SetPositionTopic:    b.onSetPosition,
		b.SetHoldTopic:        b.onSetHold,
		b.SetRecalibrateTopic: b.onSetRecalibrate,
	}
	for topic, id := range b.buttonTopics {
		subscriptions[topic] = b.onButtonEvent(id)
	}

	topics := make([]string, 0, len(subscriptions))
	for topic, handler := range subscriptions {
		if token := b.mqtt.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
			return errors.Wrapf(token.Error(), "%s: MQTT %s subscription failed", b.name, topic)
		}
		topics = append(topics, topic)
	}
	logrus.Infof("%s: MQTT command topics subscribed", b.name)

	go func() {
		<-ctx.Done()
		if token := b.mqtt.Unsubscribe(topics...); token.Wait() && token.Error() != nil {
			logrus.Errorf("%s: MQTT topics unsubscribe failed: %s", b.name, token.Error())
		}
	}()

	// Momentary flags start released. Obstruction sensing is not computed
	// here, the characteristic only exists for the accessory contract.
	b.publishRetained(b.HoldTopic, payloadFalse)
	b.publishRetained(b.RecalibrateTopic, payloadFalse)
	b.publishRetained(b.ObstructionTopic, payloadFalse)

	return nil
}

func (b *Bridge) onSetPosition(_ mqtt.Client, msg mqtt.Message) {
	target, err := strconv.Atoi(string(msg.Payload()))
	if err != nil {
		logrus.Errorf("%s: MQTT malformed target position: %s", b.name, err)
		return
	}
	if err := b.dispatcher.SetTargetPosition(target); err != nil {
		logrus.Error(err)
		return
	}
	b.PublishTarget(target)
}

func (b *Bridge) onSetHold(_ mqtt.Client, msg mqtt.Message) {
	if parseFlag(string(msg.Payload())) {
		logrus.Infof("%s: hold position requested", b.name)
		if err := b.dispatcher.HoldPosition(); err != nil {
			logrus.Error(err)
		}
	}

	// Momentary: always reset to released.
	b.publishRetained(b.HoldTopic, payloadFalse)
}

func (b *Bridge) onSetRecalibrate(_ mqtt.Client, msg mqtt.Message) {
	if parseFlag(string(msg.Payload())) {
		if err := b.dispatcher.Recalibrate(); err != nil {
			logrus.Error(err)
		}
	}

	b.publishRetained(b.RecalibrateTopic, payloadFalse)
}

func (b *Bridge) onButtonEvent(id button.ID) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		press, err := button.ParsePress(string(msg.Payload()))
		if err != nil {
			logrus.Errorf("%s: MQTT %s button event: %s", b.name, id, err)
			return
		}
		b.dispatcher.HandleButton(button.Event{Button: id, Press: press})
	}
}

func (b *Bridge) publishRetained(topic string, payload string) {
	if token := b.mqtt.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		logrus.Errorf("%s: MQTT %s publish failed: %s", b.name, topic, token.Error())
	}
}

func parseFlag(payload string) bool {
	switch payload {
	case payloadTrue, "ON", "on", "1":
		return true
	}
	return false
}
