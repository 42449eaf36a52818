package main

import (
	"context"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jkaflik/sunshade2mqtt/internal/relay"
	"github.com/racerxdl/go-mcp23017"
	"github.com/sirupsen/logrus"
	"github.com/stianeikeland/go-rpio/v4"
	"gopkg.in/yaml.v2"
)

type cfgRelaySetPin struct {
	Kind string `yaml:"kind"`

	Pin uint8 `yaml:"pin"`

	Mcp23017 int `yaml:"mcp23017"`
}

type cfgRelay struct {
	Kind string `yaml:"kind"`

	Pin          cfgRelaySetPin `yaml:"pin"`
	NormalClosed bool           `yaml:"normal_closed"`
}

type cfgCover struct {
	Name string `yaml:"name" default:"sunshade"`

	Open  cfgRelay `yaml:"open"`
	Close cfgRelay `yaml:"close"`

	MoveTick time.Duration `yaml:"move_tick" default:"100ms"`

	Metadata map[string]interface{} `yaml:"metadata"`
}

type cfgDrivers struct {
	Relay struct {
		Mcp23017 map[int]struct {
			Bus          uint8 `yaml:"bus" default:"1"`
			DeviceNumber uint8 `yaml:"device_number" default:"0"`
		} `yaml:""`
	} `yaml:"relay"`
}

type cfgMQTT struct {
	ClientID string `yaml:"client_id" default:"sunshade2mqtt" env:"CLIENT_ID"`
	Broker   string `yaml:"broker" default:"127.0.0.1:1883" env:"BROKER"`
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
}

type cfgHASS struct {
	Enabled     bool   `yaml:"enabled" default:"true" env:"ENABLED"`
	TopicPrefix string `yaml:"topic_prefix" default:"homeassistant" env:"TOPIC_PREFIX"`
}

var Cfg struct {
	LogLevel string `yaml:"log_level" default:"info" env:"LOG_LEVEL"`

	StorePath string `yaml:"store_path" default:"sunshade-store.yaml" env:"STORE_PATH"`

	MQTT cfgMQTT `yaml:"mqtt" env:"MQTT"`
	HASS cfgHASS `yaml:"hass" env:"HASS"`

	Cover cfgCover `yaml:"cover"`

	Drivers cfgDrivers `yaml:"drivers"`
}

var configLoader = aconfig.LoaderFor(&Cfg, aconfig.Config{
	EnvPrefix: "SUNSHADE",
})

func loadConfigFromYamlFile(filename string) {
	f, err := os.Open(filename)
	if err != nil {
		logrus.Error(err)
		return
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&Cfg); err != nil {
		logrus.Fatal(err)
		return
	}
}

func pahoOptsFromConfig() *paho.ClientOptions {
	return paho.NewClientOptions().
		SetClientID(Cfg.MQTT.ClientID).
		AddBroker(Cfg.MQTT.Broker).
		SetUsername(Cfg.MQTT.Username).
		SetPassword(Cfg.MQTT.Password).
		SetConnectTimeout(time.Second).
		SetPingTimeout(time.Second).
		SetWriteTimeout(time.Second).
		SetAutoReconnect(true)
}

func switchFromConfig(ctx context.Context, cfg cfgRelay) relay.Switch {
	if cfg.Kind == "wired" {
		return &relay.Wired{
			Pin:          relaySetPinFromConfig(ctx, cfg.Pin),
			NormalClosed: cfg.NormalClosed,
		}
	}

	if cfg.Kind == "dumb" {
		return &relay.Dumb{Name: cfg.Kind}
	}

	logrus.Fatalf("%s is not supported relay kind", cfg.Kind)
	return nil
}

func relaySetPinFromConfig(ctx context.Context, cfg cfgRelaySetPin) relay.SetPin {
	if cfg.Kind == "mcp23017" {
		device := mcp23017DeviceFromConfigByID(ctx, cfg.Mcp23017)

		p, err := relay.NewMcp23017Pin(device, cfg.Pin)
		if err != nil {
			logrus.Fatal(err)
		}
		return p
	}

	if cfg.Kind == "rpio" {
		openRpioOnce(ctx)
		return relay.NewRpioPin(cfg.Pin)
	}

	logrus.Fatalf("%s is not supported relay set pin kind", cfg.Kind)
	return nil
}

var rpioOpened bool

func openRpioOnce(ctx context.Context) {
	if rpioOpened {
		return
	}

	if err := rpio.Open(); err != nil {
		logrus.Fatal(err)
	}
	rpioOpened = true

	go func() {
		<-ctx.Done()
		if err := rpio.Close(); err != nil {
			logrus.Errorf("rpio: close failed %s", err)
			return
		}

		logrus.Info("rpio: close")
	}()
}

var mcpDevices = map[int]*mcp23017.Device{}

func mcp23017DeviceFromConfigByID(ctx context.Context, id int) *mcp23017.Device {
	if Cfg.Drivers.Relay.Mcp23017 == nil {
		logrus.Fatal("drivers.relay.mcp23017 not defined")
	}

	cfg, found := Cfg.Drivers.Relay.Mcp23017[id]
	if !found {
		logrus.Fatalf("%d is not valid defined drivers.relay.mcp23017", id)
		return nil
	}

	dev := mcpDevices[id]
	if dev == nil {
		var err error
		dev, err = mcp23017.Open(cfg.Bus, cfg.DeviceNumber)
		if err != nil {
			logrus.Fatal(err)
		}
		go func() {
			<-ctx.Done()
			if err := dev.Close(); err != nil {
				logrus.Errorf("mcp23017: close failed %s", err)
				return
			}

			logrus.Info("mcp23017: close")
		}()
		if err := dev.Reset(); err != nil {
			logrus.Fatal(err)
		}

		mcpDevices[id] = dev
	}

	return dev
}
