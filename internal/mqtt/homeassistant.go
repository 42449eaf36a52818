package mqtt

import (
	"encoding/json"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type haDevice struct {
	Identifiers  []string `json:"ids,omitempty"`
	Manufacturer string   `json:"mf,omitempty"`
	Model        string   `json:"mdl,omitempty"`
	Name         string   `json:"name,omitempty"`
	SWVersion    string   `json:"sw,omitempty"`
}

type haEntity struct {
	AvailabilityTopic string `json:"avty_t,omitempty"`
	UniqueID          string `json:"uniq_id,omitempty"`
	Name              string `json:"name,omitempty"`
	DeviceClass       string `json:"device_class,omitempty"`

	Device haDevice `json:"device,omitempty"`
}

type haCover struct {
	haEntity
	StateTopic       string `json:"stat_t"`
	PositionTopic    string `json:"pos_t"`
	SetPositionTopic string `json:"set_pos_t"`
	PositionOpen     int    `json:"pos_open"`
	PositionClosed   int    `json:"pos_clsd"`
}

type haSwitch struct {
	haEntity
	StateTopic   string `json:"stat_t"`
	CommandTopic string `json:"cmd_t"`
	PayloadOn    string `json:"pl_on"`
	PayloadOff   string `json:"pl_off"`
}

func haDeviceFromBridge(bridge *Bridge) haDevice {
	return haDevice{
		Identifiers:  []string{"sunshade2mqtt"},
		Manufacturer: "StudioPieters",
		Model:        "VB14B1CA/H",
		Name:         bridge.Name(),
		SWVersion:    "sunshade2mqtt",
	}
}

func NewHACoverFromBridge(bridge *Bridge) haCover {
	return haCover{
		haEntity: haEntity{
			UniqueID:    bridge.Name(),
			Name:        bridge.Name(),
			DeviceClass: "shade",
			Device:      haDeviceFromBridge(bridge),
		},
		StateTopic:       bridge.StateTopic,
		PositionTopic:    bridge.PositionTopic,
		SetPositionTopic: bridge.SetPositionTopic,
		PositionOpen:     100,
		PositionClosed:   0,
	}
}

// NewHARecalibrateSwitchFromBridge exposes the momentary recalibrate trigger
// as a switch entity. The bridge resets it to off right after handling.
func NewHARecalibrateSwitchFromBridge(bridge *Bridge) haSwitch {
	return haSwitch{
		haEntity: haEntity{
			UniqueID: bridge.Name() + "_recalibrate",
			Name:     bridge.Name() + " recalibrate",
			Device:   haDeviceFromBridge(bridge),
		},
		StateTopic:   bridge.RecalibrateTopic,
		CommandTopic: bridge.SetRecalibrateTopic,
		PayloadOn:    payloadTrue,
		PayloadOff:   payloadFalse,
	}
}

func PublishHAAutoDiscovery(client paho.Client, topicPrefix, component, uniqueID string, entity interface{}) error {
	topic := fmt.Sprintf("%s/%s/sunshade2mqtt/%s/config", topicPrefix, component, uniqueID)

	payload, err := json.Marshal(entity)
	if err != nil {
		return err
	}

	if token := client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}

	return nil
}
