package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jkaflik/sunshade2mqtt/internal/cover"
	"github.com/jkaflik/sunshade2mqtt/internal/mqtt"
	"github.com/jkaflik/sunshade2mqtt/internal/store"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors: false,
		FullTimestamp: true,
	})

	configPath := flag.String("config", "config.yaml", "config.yaml file path")
	flag.Parse()

	if err := configLoader.Load(); err != nil {
		logrus.Fatal(err)
	}
	loadConfigFromYamlFile(*configPath)

	level, err := logrus.ParseLevel(Cfg.LogLevel)
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.SetLevel(level)

	ctx, cancel := context.WithCancel(context.Background())

	kv, err := store.NewFile(Cfg.StorePath)
	if err != nil {
		logrus.Fatal(err)
	}
	travel := cover.LoadTravel(kv)

	actuator := cover.NewInterlock(
		switchFromConfig(ctx, Cfg.Cover.Open),
		switchFromConfig(ctx, Cfg.Cover.Close),
	)
	position := cover.NewPosition(Cfg.Cover.Name, actuator, travel, Cfg.Cover.MoveTick)
	calibrator := cover.NewCalibrator(Cfg.Cover.Name, position, travel)
	dispatcher := cover.NewDispatcher(position, calibrator)

	var bridge *mqtt.Bridge
	var status *cover.StatusNotifier

	opts := pahoOptsFromConfig()
	opts.OnConnect = func(_ paho.Client) {
		logrus.Info("MQTT broker connected")
		if status != nil {
			status.SetNetworkReady(true)
		}
		if bridge != nil {
			subscribe(ctx, bridge)
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logrus.Errorf("MQTT broker connection lost: %s", err.Error())
		if status != nil {
			status.SetNetworkReady(false)
		}
	}

	m := paho.NewClient(opts)
	if token := m.Connect(); token.Wait() && token.Error() != nil {
		logrus.Fatal(token.Error())
	}

	bridge = mqtt.NewBridge(m, Cfg.Cover.Name, dispatcher)
	status = cover.NewStatusNotifier(position, calibrator, bridge.PublishIndicator)

	position.OnUpdate(func(state cover.MotionState, pos int) {
		bridge.PublishUpdate(state, pos)
		status.Refresh()
	})
	position.OnTargetChange(bridge.PublishTarget)
	calibrator.OnChange(func(_ cover.CalibrationState) {
		status.Refresh()
	})

	if err := bridge.SetMetadata(Cfg.Cover.Metadata); err != nil {
		logrus.Fatal(err)
	}
	subscribe(ctx, bridge)
	status.SetNetworkReady(m.IsConnected())

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		oscall := <-c
		log.Printf("system call:%+v", oscall)
		cancel()
	}()

	<-ctx.Done()

	cleanupTime := time.Second
	logrus.Infof("cleanups for %s...", cleanupTime.String())
	time.Sleep(cleanupTime)
}

func subscribe(ctx context.Context, bridge *mqtt.Bridge) {
	if Cfg.HASS.Enabled {
		entity := mqtt.NewHACoverFromBridge(bridge)
		if err := mqtt.PublishHAAutoDiscovery(bridge.Client(), Cfg.HASS.TopicPrefix, "cover", bridge.Name(), entity); err != nil {
			logrus.Fatal(err)
		}

		recal := mqtt.NewHARecalibrateSwitchFromBridge(bridge)
		if err := mqtt.PublishHAAutoDiscovery(bridge.Client(), Cfg.HASS.TopicPrefix, "switch", bridge.Name()+"_recalibrate", recal); err != nil {
			logrus.Fatal(err)
		}
	}

	if err := bridge.Subscribe(ctx); err != nil {
		logrus.Error(err)
	}
}
