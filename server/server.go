package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/flokli/randr-agent/mqtt"
	"github.com/flokli/randr-agent/outputs"
	"github.com/flokli/randr-agent/outputs/randr"
	"github.com/flokli/randr-agent/xrandr"
	"github.com/flokli/randr-agent/xrandr/transition"
	log "github.com/sirupsen/logrus"

	"github.com/coreos/go-systemd/daemon"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
)

type Server struct {
	MachineID   string
	TopicPrefix string
	mqttClient  pahomqtt.Client
	watcher     *randr.Watcher

	muNumOutputs sync.Mutex
	numOutputs   uint
}

func New(machineID string, topicPrefix string, watcher *randr.Watcher) *Server {
	return &Server{
		MachineID:   machineID,
		TopicPrefix: topicPrefix,
		watcher:     watcher,
		numOutputs:  0,
	}
}

// Run connects to the broker and publishes the outputs until ctx is done.
func (s *Server) Run(ctx context.Context, mqttServerURL string, refreshInterval time.Duration) error {
	// setup mqtt
	mqttClient, err := mqtt.Connect(mqttServerURL, "randr-agent-"+s.MachineID, &mqtt.Will{
		Topic:   s.getScreenTopic() + "/status",
		Payload: statusOffline,
	})
	if err != nil {
		log.Error("unable to connect to MQTT")
		return fmt.Errorf("unable to connect to mqtt: %w", err)
	}
	defer mqtt.Disconnect(mqttClient)

	if err := s.attach(mqttClient); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"machineID":   s.MachineID,
		"topicPrefix": s.TopicPrefix,
	}).Info("Server started")

	// blocks until ctx is done, and calls the remove handlers afterwards
	s.watcher.Run(ctx, refreshInterval)

	if err := mqtt.Publish(s.mqttClient, s.getScreenTopic()+"/status", 1, true, statusOffline); err != nil {
		log.WithError(err).Warn("unable to publish offline status")
	}

	log.Info("server.Run() finished")

	return nil
}

// attach registers the watcher handlers, and subscribes to the screen
// wide topics.
func (s *Server) attach(mqttClient pahomqtt.Client) error {
	s.mqttClient = mqttClient

	// what to do if there's a new output.
	s.watcher.RegisterOutputAdd(func(output outputs.Output) {
		firstNewOutput := false
		s.muNumOutputs.Lock()
		// If we previously had no outputs and now have one, mark as ready.
		if s.numOutputs == 0 {
			firstNewOutput = true
		}
		s.numOutputs = s.numOutputs + 1
		s.muNumOutputs.Unlock()

		outputName := *output.GetInfo().Name
		l := log.WithField("outputName", outputName)

		// subscribe to the MQTT set topic
		topic := s.getTopicPrefixForOutputName(outputName) + "/set"
		err := mqtt.Subscribe(s.mqttClient, topic, 0, func(c pahomqtt.Client, m pahomqtt.Message) {
			l := l.WithFields(log.Fields{
				"message_id": m.MessageID(),
				"payload":    string(m.Payload()),
				"topic":      topic,
			})
			l.Debug("received message")

			if m.Topic() != topic {
				// This should only happen if the broker sends us unsolicited messages,
				// and/or the client doesn't properly route them to the right callbacks.
				l.Warn("discarded unrelated message")
				return
			}

			if err := handleSetCmd(context.Background(), m.Payload(), output); err != nil {
				l.WithError(err).Error("unable to handle setCmd")
			}
		})
		if err != nil {
			l.WithField("topic", topic).WithError(err).Error("unable to subscribe to set topic")
		}

		// mark as ready if this was the first output for which we published state, info
		// and subscribed to the set topic.
		if firstNewOutput {
			daemon.SdNotify(false, daemon.SdNotifyReady)
		}

		if err := s.publishOutputData(output); err != nil {
			l.WithError(err).Warn("unable to publish output data")
		} else {
			daemon.SdNotify(false, "WATCHDOG=1")
		}
	})

	s.watcher.RegisterOutputUpdate(func(output outputs.Output) {
		if err := s.publishOutputData(output); err != nil {
			log.WithError(err).Warn("unable to publish output data")
		} else {
			daemon.SdNotify(false, "WATCHDOG=1")
		}
	})

	// what to do if the output is removed
	s.watcher.RegisterOutputRemove(func(output outputs.Output) {
		s.muNumOutputs.Lock()
		s.numOutputs = s.numOutputs - 1
		s.muNumOutputs.Unlock()

		outputName := *output.GetInfo().Name
		l := log.WithField("outputName", outputName)
		// unsubscribe from the MQTT set topic
		err := mqtt.Unsubscribe(s.mqttClient, []string{s.getTopicPrefixForOutputName(outputName) + "/set"})
		if err != nil {
			l.WithError(err).Warn("unable to unsubscribe")
		}

		// publish an empty object to the topics state and info
		if err := mqtt.Publish(s.mqttClient, s.getTopicPrefixForOutputName(outputName)+"/state", 0, false, []byte("{}")); err != nil {
			l.WithError(err).Warn("unable to publish empty object for state")
		}
		if err := mqtt.Publish(s.mqttClient, s.getTopicPrefixForOutputName(outputName)+"/info", 0, false, []byte("{}")); err != nil {
			l.WithError(err).Warn("unable to publish empty object for info")
		}
	})

	s.watcher.RegisterScreenUpdate(func(server *xrandr.Server) {
		if err := s.publishScreenData(server); err != nil {
			log.WithError(err).Warn("unable to publish screen data")
		}
	})

	topic := s.getScreenTopic() + "/apply"
	err := mqtt.Subscribe(s.mqttClient, topic, 0, func(c pahomqtt.Client, m pahomqtt.Message) {
		l := log.WithFields(log.Fields{
			"message_id": m.MessageID(),
			"payload":    string(m.Payload()),
			"topic":      topic,
		})
		l.Debug("received message")

		if m.Topic() != topic {
			l.Warn("discarded unrelated message")
			return
		}

		if err := s.handleApplyCmd(context.Background(), m.Payload()); err != nil {
			l.WithError(err).Error("unable to handle applyCmd")
		}
	})
	if err != nil {
		return fmt.Errorf("unable to subscribe to %s: %w", topic, err)
	}

	if err := mqtt.Publish(s.mqttClient, s.getScreenTopic()+"/status", 1, true, statusOnline); err != nil {
		return fmt.Errorf("unable to publish online status: %w", err)
	}
	return nil
}

// publishOutputData publishes all info about a given output to the mqtt broker.
func (s *Server) publishOutputData(output outputs.Output) error {
	state := output.GetState()
	info := output.GetInfo()

	topicPrefix := s.getTopicPrefixForOutputName(*info.Name)

	stateJSON, err := json.Marshal(&state)
	if err != nil {
		return fmt.Errorf("unable to marshal state json: %w", err)
	}

	infoJSON, err := json.Marshal(&info)
	if err != nil {
		return fmt.Errorf("unable to marshal info json: %w", err)
	}

	if err := mqtt.Publish(s.mqttClient, topicPrefix+"/state", 0, false, stateJSON); err != nil {
		return fmt.Errorf("unable to publish state: %w", err)
	}
	if err := mqtt.Publish(s.mqttClient, topicPrefix+"/info", 0, false, infoJSON); err != nil {
		return fmt.Errorf("unable to publish info: %w", err)
	}

	return nil
}

// publishScreenData publishes the whole snapshot of the server.
func (s *Server) publishScreenData(server *xrandr.Server) error {
	serverJSON, err := json.Marshal(server)
	if err != nil {
		return fmt.Errorf("unable to marshal screen json: %w", err)
	}
	if err := mqtt.Publish(s.mqttClient, s.getScreenTopic()+"/state", 0, false, serverJSON); err != nil {
		return fmt.Errorf("unable to publish screen state: %w", err)
	}
	return nil
}

// ApplyRequest is the payload of the screen apply topic. A bare JSON array
// is accepted as well, and taken as Args.
type ApplyRequest struct {
	// Args is an xrandr argument vector, like ["--output", "HDMI1", "--auto"]
	Args []string `json:"args"`
	// Shove moves outputs back into the virtual screen. Defaults to true.
	Shove *bool `json:"shove"`
	// DryRun only predicts the outcome.
	DryRun bool `json:"dry_run"`
}

// ApplyResult is published to the screen result topic after every apply
// request.
type ApplyResult struct {
	Args       []string                    `json:"args"`
	Transition string                      `json:"transition,omitempty"`
	Predicted  *transition.PredictedServer `json:"predicted,omitempty"`
	Error      string                      `json:"error,omitempty"`
}

func parseApplyRequest(payload []byte) (*ApplyRequest, error) {
	req := &ApplyRequest{}
	if trimmed := bytes.TrimSpace(payload); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &req.Args); err != nil {
			return nil, fmt.Errorf("failed to parse apply payload: %w", err)
		}
		return req, nil
	}
	if err := json.Unmarshal(payload, req); err != nil {
		return nil, fmt.Errorf("failed to parse apply payload: %w", err)
	}
	return req, nil
}

// handleApplyCmd applies (or predicts) an xrandr argument vector, and
// publishes the outcome.
func (s *Server) handleApplyCmd(ctx context.Context, payload []byte) error {
	req, err := parseApplyRequest(payload)
	if err != nil {
		return err
	}
	shove := req.Shove == nil || *req.Shove

	res := &ApplyResult{Args: req.Args}
	var t *transition.Transition
	if req.DryRun {
		server := s.watcher.Server()
		if server == nil {
			err = fmt.Errorf("no screen state loaded yet")
		} else if t, err = transition.Load(server, req.Args); err == nil {
			if shove {
				err = t.ShoveToFit()
			}
			if err == nil {
				err = t.Validate()
			}
		}
	} else {
		t, err = s.watcher.Apply(ctx, req.Args, shove)
	}
	if t != nil {
		res.Transition = t.String()
		res.Predicted = t.Predict()
	}
	if err != nil {
		res.Error = err.Error()
	}

	resJSON, jsonErr := json.Marshal(res)
	if jsonErr != nil {
		return fmt.Errorf("unable to marshal apply result: %w", jsonErr)
	}
	if pubErr := mqtt.Publish(s.mqttClient, s.getScreenTopic()+"/result", 0, false, resJSON); pubErr != nil {
		log.WithError(pubErr).Warn("unable to publish apply result")
	}
	return err
}

// decode the mqtt set command and update the output.
func handleSetCmd(ctx context.Context, payload []byte, output outputs.Output) error {
	// Parse payload into (sparse) state
	var setState *outputs.State
	if err := json.Unmarshal(payload, &setState); err != nil {
		return fmt.Errorf("failed to parse set payload: %w", err)
	}
	if setState == nil {
		return fmt.Errorf("empty set payload")
	}

	// Dedup settings that are already set the way they should be.
	currentState := output.GetState()

	if setState.Enabled != nil && currentState.Enabled != nil && *setState.Enabled == *currentState.Enabled {
		setState.Enabled = nil
	}
	if setState.Mode != nil && currentState.Mode != nil && setState.Mode.Matches(currentState.Mode) {
		setState.Mode = nil
	}
	if setState.Position != nil && currentState.Position != nil && *setState.Position == *currentState.Position {
		setState.Position = nil
	}
	if setState.Rotation != nil && currentState.Rotation != nil && *setState.Rotation == *currentState.Rotation {
		setState.Rotation = nil
	}
	if setState.Reflection != nil && currentState.Reflection != nil && *setState.Reflection == *currentState.Reflection {
		setState.Reflection = nil
	}
	if setState.Primary != nil && currentState.Primary != nil && *setState.Primary == *currentState.Primary {
		setState.Primary = nil
	}

	if _, err := output.SetState(ctx, setState); err != nil {
		return fmt.Errorf("unable to set state: %w", err)
	}

	return nil
}

func (s *Server) getTopicPrefixForOutputName(name string) string {
	return s.TopicPrefix + "/" + name + "@" + s.MachineID
}

func (s *Server) getScreenTopic() string {
	return s.getTopicPrefixForOutputName("screen")
}
