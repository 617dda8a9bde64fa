package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"nova-bot/internal/domain"
)

const (
	skPrefixMsg = "MSG#"
	skMeta      = "META#"
	ttlDuration = 30 * 24 * time.Hour // 30-day TTL

	statusComplete = "complete"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// *dynamodb.Client satisfies it.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client wraps the single Nova-Bot state table: user profiles and conversations.
type Client struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, now: time.Now}, nil
}

func convPK(chatID string) string {
	return "CONV#" + chatID
}

func msgSK(ts time.Time) string {
	return skPrefixMsg + ts.UTC().Format(time.RFC3339Nano)
}

func (c *Client) ttlValue() int64 {
	return c.now().Add(ttlDuration).Unix()
}

// GetConversation returns the metadata of a chat. found is false for a chat never saved (or expired).
func (c *Client) GetConversation(ctx context.Context, chatID string) (meta domain.ConversationMeta, found bool, err error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: convPK(chatID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.ConversationMeta{}, false, fmt.Errorf("repository: GetConversation get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.ConversationMeta{}, false, nil
	}

	turns, err := intAttr(out.Item, "turns")
	if err != nil {
		return domain.ConversationMeta{}, false, fmt.Errorf("repository: GetConversation decode turns: %w", err)
	}
	owner, _ := strAttr(out.Item, "ownerId") // absent on legacy items
	last, _ := strAttr(out.Item, "lastActivity")
	return domain.ConversationMeta{
		PK:           convPK(chatID),
		SK:           skMeta,
		ChatID:       chatID,
		OwnerID:      owner,
		LastActivity: last,
		Turns:        turns,
	}, true, nil
}

// GetHistory returns up to limit most recent turns of a chat in chronological order.
func (c *Client) GetHistory(ctx context.Context, chatID string, limit int) ([]domain.Turn, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: convPK(chatID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixMsg},
		},
		// Newest first so LIMIT keeps the most recent context.
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: GetHistory query: %w", err)
	}

	turns := make([]domain.Turn, 0, len(out.Items))
	for _, item := range out.Items {
		turn, err := itemToTurn(item)
		if err != nil {
			return nil, fmt.Errorf("repository: GetHistory unmarshal: %w", err)
		}
		turns = append(turns, turn)
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// SaveTurn writes the turn and the updated metadata in one transaction.
func (c *Client) SaveTurn(ctx context.Context, turn domain.Turn, meta domain.ConversationMeta) error {
	if turn.PK == "" || turn.SK == "" {
		return errors.New("repository: SaveTurn: turn PK and SK are required")
	}
	if meta.PK == "" || meta.SK == "" {
		return errors.New("repository: SaveTurn: meta PK and SK are required")
	}

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                turnItem(turn),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(c.tableName),
					Item:      metaItem(meta),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: SaveTurn: %w", err)
	}
	return nil
}

// SaveCompletedTurn persists an answered query and bumps the chat's turn count.
func (c *Client) SaveCompletedTurn(ctx context.Context, chatID, ownerID, query, answer string, followups []string, turns int) error {
	turn := c.NewTurn(chatID, query, answer, followups)
	meta := c.NewConversationMeta(chatID, ownerID, turns)
	if err := c.SaveTurn(ctx, turn, meta); err != nil {
		return fmt.Errorf("repository: SaveCompletedTurn: %w", err)
	}
	return nil
}

// NewTurn constructs a completed Turn keyed by the current time.
func (c *Client) NewTurn(chatID, query, answer string, followups []string) domain.Turn {
	return domain.Turn{
		PK:        convPK(chatID),
		SK:        msgSK(c.now()),
		ChatID:    chatID,
		Query:     query,
		Answer:    answer,
		Followups: followups,
		Status:    statusComplete,
		TTL:       c.ttlValue(),
	}
}

// NewConversationMeta constructs a ConversationMeta record.
func (c *Client) NewConversationMeta(chatID, ownerID string, turns int) domain.ConversationMeta {
	return domain.ConversationMeta{
		PK:           convPK(chatID),
		SK:           skMeta,
		ChatID:       chatID,
		OwnerID:      ownerID,
		LastActivity: c.now().UTC().Format(time.RFC3339),
		Turns:        turns,
		TTL:          c.ttlValue(),
	}
}

func itemToTurn(item map[string]types.AttributeValue) (domain.Turn, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.Turn{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.Turn{}, err
	}
	query, err := strAttr(item, "query")
	if err != nil {
		return domain.Turn{}, err
	}
	chatID, _ := strAttr(item, "chatId")
	answer, _ := strAttr(item, "answer")
	status, _ := strAttr(item, "status")

	return domain.Turn{
		PK:        pk,
		SK:        sk,
		ChatID:    chatID,
		Query:     query,
		Answer:    answer,
		Followups: listAttr(item, "followups"),
		Status:    status,
	}, nil
}

func turnItem(turn domain.Turn) map[string]types.AttributeValue {
	followups := make([]types.AttributeValue, 0, len(turn.Followups))
	for _, f := range turn.Followups {
		followups = append(followups, &types.AttributeValueMemberS{Value: f})
	}
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: turn.PK},
		"SK":        &types.AttributeValueMemberS{Value: turn.SK},
		"chatId":    &types.AttributeValueMemberS{Value: turn.ChatID},
		"query":     &types.AttributeValueMemberS{Value: turn.Query},
		"answer":    &types.AttributeValueMemberS{Value: turn.Answer},
		"followups": &types.AttributeValueMemberL{Value: followups},
		"status":    &types.AttributeValueMemberS{Value: turn.Status},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(turn.TTL, 10)},
	}
}

func metaItem(meta domain.ConversationMeta) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: meta.PK},
		"SK":           &types.AttributeValueMemberS{Value: meta.SK},
		"chatId":       &types.AttributeValueMemberS{Value: meta.ChatID},
		"ownerId":      &types.AttributeValueMemberS{Value: meta.OwnerID},
		"lastActivity": &types.AttributeValueMemberS{Value: meta.LastActivity},
		"turns":        &types.AttributeValueMemberN{Value: strconv.Itoa(meta.Turns)},
		"ttl":          &types.AttributeValueMemberN{Value: strconv.FormatInt(meta.TTL, 10)},
	}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

// listAttr reads a list of strings, skipping non-string elements.
func listAttr(item map[string]types.AttributeValue, key string) []string {
	l, ok := item[key].(*types.AttributeValueMemberL)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(l.Value))
	for _, v := range l.Value {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			out = append(out, s.Value)
		}
	}
	return out
}
