package codec

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"yatzy-lite/yatzy"
)

type CommandType string

// Client → server commands.
const (
	CmdJoin    CommandType = "join"
	CmdRoll    CommandType = "roll"
	CmdHold    CommandType = "hold"
	CmdScore   CommandType = "score"
	CmdPreview CommandType = "preview"
	CmdRestart CommandType = "restart"
	CmdBot     CommandType = "bot"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMalformedCommand = errors.New("malformed command")
)

// Command is a decoded client request. Die is 0-based and only meaningful for
// hold; Category only for score; Bot only for bot.
type Command struct {
	Type     CommandType
	Die      int
	Category yatzy.Category
	Bot      string
}

func DecodeCommand(data []byte) (Command, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	return CommandFromStruct(&msg)
}

func CommandFromStruct(msg *structpb.Struct) (Command, error) {
	f := msg.GetFields()
	cmd := Command{Type: CommandType(strings.ToLower(strings.TrimSpace(f["type"].GetStringValue())))}
	switch cmd.Type {
	case CmdJoin, CmdRoll, CmdPreview, CmdRestart:
		return cmd, nil
	case CmdHold:
		v, ok := f["die"]
		if !ok {
			return Command{}, fmt.Errorf("%w: hold needs die", ErrMalformedCommand)
		}
		n := v.GetNumberValue()
		if n != math.Trunc(n) {
			return Command{}, fmt.Errorf("%w: die must be an integer", ErrMalformedCommand)
		}
		cmd.Die = int(n)
		return cmd, nil
	case CmdScore:
		c, err := yatzy.ParseCategory(f["category"].GetStringValue())
		if err != nil {
			return Command{}, err
		}
		cmd.Category = c
		return cmd, nil
	case CmdBot:
		cmd.Bot = f["bot"].GetStringValue()
		return cmd, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

// EncodeCommand is the client-side counterpart of DecodeCommand.
func EncodeCommand(cmd Command) ([]byte, error) {
	fields := map[string]*structpb.Value{
		"type": structpb.NewStringValue(string(cmd.Type)),
	}
	switch cmd.Type {
	case CmdHold:
		fields["die"] = intValue(cmd.Die)
	case CmdScore:
		fields["category"] = structpb.NewStringValue(cmd.Category.Key())
	case CmdBot:
		fields["bot"] = structpb.NewStringValue(cmd.Bot)
	}
	return Marshal(&structpb.Struct{Fields: fields})
}
