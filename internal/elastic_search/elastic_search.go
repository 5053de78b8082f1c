package elastic_search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ZilDuck/blaze-marketplace/internal/config"
	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ZilDuck/blaze-marketplace/internal/log"
	"github.com/aws/aws-sdk-go/aws/credentials"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	"github.com/olivere/elastic/v7"
	"github.com/patrickmn/go-cache"
	"github.com/sha1sum/aws_signing_client"
	"go.uber.org/zap"
)

type Index interface {
	GetClient() *elastic.Client
	GetIndex(index Indices) string

	InstallMappings(reindex bool) error

	AddIndexRequest(index Indices, entity entity.Entity, reqAction RequestAction)
	AddUpdateRequest(index Indices, entity entity.Entity, reqAction RequestAction)
	HasRequest(entity entity.Entity) bool
	GetRequests() []Request
	GetRequest(id string) *Request
	ClearRequests()

	BatchPersist() bool
	Persist() (int, error)
}

type index struct {
	client    *elastic.Client
	cache     *cache.Cache
	mu        sync.Mutex
	cfg       config.ElasticSearchConfig
	batchSize int
}

type Request struct {
	Index  string
	Entity entity.Entity
	Type   RequestType
	Action RequestAction
}

type RequestType string

const (
	IndexRequest  RequestType = "index"
	UpdateRequest RequestType = "update"
)

type RequestAction string

const (
	EventCreate RequestAction = "EventCreate"

	AssetMint     RequestAction = "AssetMint"
	AssetTransfer RequestAction = "AssetTransfer"

	ListingCreate RequestAction = "ListingCreate"
	ListingCancel RequestAction = "ListingCancel"
	ListingSale   RequestAction = "ListingSale"
)

const (
	persistAttempts  = 3
	defaultBatchSize = 250
)

var ErrPersistFailed = errors.New("failed to persist requests")

func New(cfg config.ElasticSearchConfig, awsCfg config.AwsConfig) (Index, error) {
	client, err := newClient(cfg, awsCfg)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("ElasticSearch: Failed to create client")
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

func NewWithClient(client *elastic.Client, cfg config.ElasticSearchConfig) Index {
	batchSize := cfg.BulkPersistCount
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &index{
		client:    client,
		cache:     cache.New(5*time.Minute, 10*time.Minute),
		cfg:       cfg,
		batchSize: batchSize,
	}
}

func newClient(cfg config.ElasticSearchConfig, awsCfg config.AwsConfig) (*elastic.Client, error) {
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(strings.Join(cfg.Hosts, ",")),
		elastic.SetSniff(cfg.Sniff),
		elastic.SetHealthcheck(cfg.HealthCheck),
	}

	if cfg.Debug {
		opts = append(opts, elastic.SetTraceLog(log.NewPrintfLogger("ElasticSearch")))
	}

	if cfg.Aws {
		creds := credentials.NewStaticCredentials(awsCfg.AccessKey, awsCfg.SecretKey, awsCfg.Token)
		awsClient, err := aws_signing_client.New(v4.NewSigner(creds), nil, "es", awsCfg.Region)
		if err != nil {
			return nil, err
		}

		opts = append(opts, elastic.SetHttpClient(awsClient))
		opts = append(opts, elastic.SetScheme("https"))
		return elastic.NewClient(opts...)
	}

	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}

	return elastic.NewClient(opts...)
}

func (i *index) GetClient() *elastic.Client {
	return i.client
}

func (i *index) GetIndex(index Indices) string {
	return index.Get(i.cfg.Prefix)
}

// InstallMappings creates one index per <name>.json file in the mapping dir.
func (i *index) InstallMappings(reindex bool) error {
	zap.L().Info("ElasticSearch: Install Mappings")

	files, err := os.ReadDir(i.cfg.MappingDir)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("ElasticSearch: Elastic mappings directory error")
		return err
	}

	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}

		b, err := os.ReadFile(filepath.Join(i.cfg.MappingDir, f.Name()))
		if err != nil {
			zap.L().With(zap.Error(err), zap.String("file", f.Name())).Error("ElasticSearch: Elastic mappings file error")
			return err
		}

		index := Indices(strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))).Get(i.cfg.Prefix)
		if err = i.createIndex(index, b, reindex); err != nil {
			zap.S().With(zap.Error(err)).Errorf("ElasticSearch: Failed to create index %s", index)
			return err
		}
	}

	return nil
}

func (i *index) createIndex(index string, mapping []byte, reindex bool) error {
	ctx := context.Background()
	client := i.client

	exists, err := client.IndexExists(index).Do(ctx)
	if err != nil {
		return err
	}

	if exists && reindex {
		zap.S().Infof("ElasticSearch: Deleting index %s", index)
		if _, err = client.DeleteIndex(index).Do(ctx); err != nil {
			return err
		}
		exists = false
	}

	if !exists {
		createIndex, err := client.CreateIndex(index).BodyString(string(mapping)).Do(ctx)
		if err != nil {
			return err
		}

		if createIndex.Acknowledged {
			zap.S().Infof("ElasticSearch: Created index %s", index)
		}
	}

	return nil
}

func (i *index) AddIndexRequest(index Indices, entity entity.Entity, reqAction RequestAction) {
	zap.L().With(
		zap.String("index", string(index)),
		zap.String("slug", entity.Slug()),
		zap.String("action", string(reqAction)),
	).Debug("ElasticSearch: AddIndexRequest")

	i.mu.Lock()
	defer i.mu.Unlock()

	i.addRequest(i.GetIndex(index), entity, IndexRequest, reqAction)
}

// AddUpdateRequest merges into a buffered request for the same document. A
// buffered index request stays an index request.
func (i *index) AddUpdateRequest(index Indices, entity entity.Entity, reqAction RequestAction) {
	zap.L().With(
		zap.String("index", string(index)),
		zap.String("slug", entity.Slug()),
		zap.String("action", string(reqAction)),
	).Debug("ElasticSearch: AddUpdateRequest")

	i.mu.Lock()
	defer i.mu.Unlock()

	if cached, found := i.cache.Get(entity.Slug()); found {
		entity = mergeRequests(cached.(Request), reqAction, entity)
		if cached.(Request).Type == IndexRequest {
			i.addRequest(i.GetIndex(index), entity, IndexRequest, reqAction)
			return
		}
	}

	i.addRequest(i.GetIndex(index), entity, UpdateRequest, reqAction)
}

func (i *index) HasRequest(entity entity.Entity) bool {
	_, found := i.cache.Get(entity.Slug())

	return found
}

func (i *index) addRequest(index string, entity entity.Entity, reqType RequestType, reqAction RequestAction) {
	i.cache.Set(entity.Slug(), Request{index, entity, reqType, reqAction}, cache.NoExpiration)
}

func (i *index) GetRequests() []Request {
	requests := make([]Request, 0)

	for _, item := range i.cache.Items() {
		requests = append(requests, item.Object.(Request))
	}

	return requests
}

func (i *index) GetRequest(id string) *Request {
	if item, found := i.cache.Get(id); found {
		req := item.(Request)
		return &req
	}

	return nil
}

func (i *index) ClearRequests() {
	i.cache.Flush()
}

// BatchPersist persists only once the buffer holds a full batch.
func (i *index) BatchPersist() bool {
	if i.cache.ItemCount() < i.batchSize {
		return false
	}

	actions := i.cache.ItemCount()
	start := time.Now()
	if _, err := i.Persist(); err != nil {
		return false
	}

	zap.L().With(
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("actions", actions),
	).Info("ElasticSearch: Persisting data")

	return true
}

func (i *index) Persist() (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	requests := i.GetRequests()
	if len(requests) == 0 {
		return 0, nil
	}

	total := 0
	bulk := i.client.Bulk()
	for _, r := range requests {
		if r.Type == IndexRequest {
			bulk.Add(elastic.NewBulkIndexRequest().Index(r.Index).Id(r.Entity.Slug()).Doc(r.Entity))
		} else if r.Type == UpdateRequest {
			bulk.Add(elastic.NewBulkUpdateRequest().Index(r.Index).Id(r.Entity.Slug()).Doc(r.Entity))
		}

		if bulk.NumberOfActions() >= i.batchSize {
			total += bulk.NumberOfActions()
			if err := i.persist(bulk, 1); err != nil {
				return total, err
			}
			bulk = i.client.Bulk()
		}
	}

	if actions := bulk.NumberOfActions(); actions != 0 {
		total += actions
		if err := i.persist(bulk, 1); err != nil {
			return total, err
		}
	}

	zap.L().Debug("ElasticSearch: Flushing ES cache")
	i.cache.Flush()

	return total, nil
}

func (i *index) persist(bulk *elastic.BulkService, attempt int) error {
	zap.S().Debugf("ElasticSearch: Persisting %d actions", bulk.NumberOfActions())

	response, err := bulk.Refresh(i.cfg.Refresh).Do(context.Background())
	if err != nil {
		if attempt < persistAttempts {
			delay := time.Second
			if elastic.IsStatusCode(err, http.StatusTooManyRequests) {
				zap.L().With(zap.Error(err)).Warn("ElasticSearch: 429 (Too Many Requests)")
				delay = 5 * time.Second
			}
			time.Sleep(delay)
			return i.persist(bulk, attempt+1)
		}

		zap.L().With(zap.Error(err)).Error("ElasticSearch: Failed to persist requests")
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	for _, failed := range response.Failed() {
		zap.L().With(
			zap.Any("error", failed.Error),
			zap.String("index", failed.Index),
			zap.String("id", failed.Id),
		).Error("ElasticSearch: Failed to persist request")
	}
	if len(response.Failed()) != 0 {
		return fmt.Errorf("%w: %d rejected", ErrPersistFailed, len(response.Failed()))
	}

	return nil
}
