package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"nova-bot/internal/domain"
)

const skProfile = "PROFILE#"

func userPK(userID string) string {
	return "USER#" + userID
}

// RegisterUser records a sign-in. It creates the profile and reports true for a user never seen
// before; for a known user it refreshes email and lastSeen and reports false.
func (c *Client) RegisterUser(ctx context.Context, userID, email string) (created bool, err error) {
	now := c.now().UTC().Format(time.RFC3339)
	user := domain.User{
		PK:        userPK(userID),
		SK:        skProfile,
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		LastSeen:  now,
		TTL:       c.ttlValue(),
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                userItem(user),
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err == nil {
		return true, nil
	}
	var exists *types.ConditionalCheckFailedException
	if !errors.As(err, &exists) {
		return false, fmt.Errorf("repository: RegisterUser put: %w", err)
	}

	_, err = c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: user.PK},
			"SK": &types.AttributeValueMemberS{Value: user.SK},
		},
		UpdateExpression: aws.String("SET email = :email, lastSeen = :seen, #ttl = :ttl"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: user.Email},
			":seen":  &types.AttributeValueMemberS{Value: user.LastSeen},
			":ttl":   &types.AttributeValueMemberN{Value: strconv.FormatInt(user.TTL, 10)},
		},
	})
	if err != nil {
		return false, fmt.Errorf("repository: RegisterUser update: %w", err)
	}
	return false, nil
}

func userItem(u domain.User) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: u.PK},
		"SK":        &types.AttributeValueMemberS{Value: u.SK},
		"userId":    &types.AttributeValueMemberS{Value: u.UserID},
		"email":     &types.AttributeValueMemberS{Value: u.Email},
		"createdAt": &types.AttributeValueMemberS{Value: u.CreatedAt},
		"lastSeen":  &types.AttributeValueMemberS{Value: u.LastSeen},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(u.TTL, 10)},
	}
}
