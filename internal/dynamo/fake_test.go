package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeClient is an in-memory stand-in for DynamoDB that understands exactly
// the requests Store issues. Scans return items in descending id order and in
// pages of pageSize so that client-side sorting and pagination are exercised.
type fakeClient struct {
	mu       sync.Mutex
	items    map[int64]map[string]ddbtypes.AttributeValue
	pageSize int
	err      error

	scans        int
	transactions [][]ddbtypes.TransactWriteItem
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		items:    make(map[int64]map[string]ddbtypes.AttributeValue),
		pageSize: 3,
	}
}

func keyID(key map[string]ddbtypes.AttributeValue) (int64, error) {
	n, ok := key[attrID].(*ddbtypes.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("fake: key has no numeric id")
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

func (f *fakeClient) UpdateItem(_ context.Context, in *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if *in.UpdateExpression != "ADD #seq :one" {
		return nil, fmt.Errorf("fake: unsupported update %q", *in.UpdateExpression)
	}
	id, err := keyID(in.Key)
	if err != nil {
		return nil, err
	}
	counter, ok := f.items[id]
	if !ok {
		counter = map[string]ddbtypes.AttributeValue{attrID: in.Key[attrID], attrSeq: &ddbtypes.AttributeValueMemberN{Value: "0"}}
		f.items[id] = counter
	}
	seq, _ := strconv.ParseInt(counter[attrSeq].(*ddbtypes.AttributeValueMemberN).Value, 10, 64)
	seq++
	counter[attrSeq] = &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(seq, 10)}
	return &sdk.UpdateItemOutput{
		Attributes: map[string]ddbtypes.AttributeValue{attrSeq: counter[attrSeq]},
	}, nil
}

func (f *fakeClient) PutItem(_ context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	id, err := keyID(in.Item)
	if err != nil {
		return nil, err
	}
	if _, exists := f.items[id]; exists && in.ConditionExpression != nil {
		return nil, &ddbtypes.ConditionalCheckFailedException{Message: strPtr("item exists")}
	}
	if _, ok := in.Item[attrQuantity]; !ok {
		return nil, errors.New("fake: item has no quantity")
	}
	f.items[id] = in.Item
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeClient) Scan(_ context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.scans++

	match, err := f.filter(in)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	start := 0
	if len(in.ExclusiveStartKey) > 0 {
		last, err := keyID(in.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		for i, id := range ids {
			if id == last {
				start = i + 1
				break
			}
		}
	}
	end := min(start+f.pageSize, len(ids))

	out := &sdk.ScanOutput{}
	for _, id := range ids[start:end] {
		if match(f.items[id]) {
			out.Items = append(out.Items, f.items[id])
		}
	}
	if end < len(ids) {
		out.LastEvaluatedKey = map[string]ddbtypes.AttributeValue{attrID: idValue(ids[end-1])}
	}
	return out, nil
}

func (f *fakeClient) filter(in *sdk.ScanInput) (func(map[string]ddbtypes.AttributeValue) bool, error) {
	switch *in.FilterExpression {
	case filterByName:
		want := in.ExpressionAttributeValues[":name"].(*ddbtypes.AttributeValueMemberS).Value
		return func(it map[string]ddbtypes.AttributeValue) bool {
			name, ok := it[in.ExpressionAttributeNames["#name"]].(*ddbtypes.AttributeValueMemberS)
			return ok && name.Value == want
		}, nil
	case filterAll:
		return func(it map[string]ddbtypes.AttributeValue) bool {
			id, err := keyID(it)
			return err == nil && id > 0
		}, nil
	default:
		return nil, fmt.Errorf("fake: unsupported filter %q", *in.FilterExpression)
	}
}

func (f *fakeClient) TransactWriteItems(_ context.Context, in *sdk.TransactWriteItemsInput, _ ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(in.TransactItems) > MaxTransactItems {
		return nil, errors.New("fake: too many transact items")
	}
	f.transactions = append(f.transactions, in.TransactItems)
	for _, action := range in.TransactItems {
		id, err := keyID(action.Delete.Key)
		if err != nil {
			return nil, err
		}
		delete(f.items, id)
	}
	return &sdk.TransactWriteItemsOutput{}, nil
}

func (f *fakeClient) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func strPtr(s string) *string { return &s }
