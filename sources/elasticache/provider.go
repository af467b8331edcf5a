package elasticache

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"
	elasticachetypes "github.com/aws/aws-sdk-go-v2/service/elasticache/types"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	taggingtypes "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/moepig/net-conf-gen/sources"
)

const providerType = "elasticache_redis"

// TagColumnPrefix prefixes resource tag keys to form row column names
const TagColumnPrefix = "tag_"

// Fixed columns of every inventory row, in order
var baseColumns = []string{"hostname", "host", "port", "cluster", "shard", "role"}

// Provider implements the sources.Provider interface for ElastiCache Redis
// Every node of every matching replication group becomes one row
type Provider struct {
	elasticacheClient ElastiCacheAPI
	taggingClient     ResourceGroupsTaggingAPI
}

// ElastiCacheAPI defines the ElastiCache API interface
type ElastiCacheAPI interface {
	DescribeReplicationGroups(ctx context.Context, params *elasticache.DescribeReplicationGroupsInput, optFns ...func(*elasticache.Options)) (*elasticache.DescribeReplicationGroupsOutput, error)
}

// ResourceGroupsTaggingAPI defines the Resource Groups Tagging API interface
type ResourceGroupsTaggingAPI interface {
	GetResources(ctx context.Context, params *resourcegroupstaggingapi.GetResourcesInput, optFns ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.GetResourcesOutput, error)
}

// NewProvider creates a new ElastiCache provider
func NewProvider() *Provider {
	return &Provider{}
}

// Type returns the source type handled by this provider
func (p *Provider) Type() string {
	return providerType
}

// ValidateConfig checks if the provider configuration is valid
func (p *Provider) ValidateConfig(cfg sources.ProviderConfig) error {
	if cfg.Region == "" {
		return fmt.Errorf("region is required")
	}

	if cfg.Filters != nil {
		if _, ok := cfg.Filters["tags"]; ok {
			if _, ok := cfg.Filters["tags"].(map[string]interface{}); !ok {
				return fmt.Errorf("filters.tags must be a map")
			}
		}
	}

	return nil
}

// Open discovers the nodes up front and serves them as rows
func (p *Provider) Open(ctx context.Context, cfg sources.ProviderConfig) (sources.Reader, error) {
	rows, err := p.Discover(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return sources.NewSliceReader(columnsOf(rows), rows), nil
}

// Discover retrieves ElastiCache Redis nodes matching the tag filters
func (p *Provider) Discover(ctx context.Context, cfg sources.ProviderConfig) ([]sources.Row, error) {
	slog.Debug("Starting ElastiCache Redis discovery", "region", cfg.Region)

	if err := p.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	// Clients may be injected for testing
	if p.taggingClient == nil || p.elasticacheClient == nil {
		slog.Debug("Loading AWS configuration", "region", cfg.Region)
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		if p.taggingClient == nil {
			p.taggingClient = resourcegroupstaggingapi.NewFromConfig(awsCfg)
		}
		if p.elasticacheClient == nil {
			p.elasticacheClient = elasticache.NewFromConfig(awsCfg)
		}
	}

	tags := extractTagFilters(cfg.Filters)
	slog.Debug("Extracted tag filters", "tag_count", len(tags), "tags", tags)

	resourceTagMappings, err := p.getReplicationGroupsByTags(ctx, tags)
	if err != nil {
		return nil, err
	}

	if len(resourceTagMappings) == 0 {
		slog.Info("No replication groups found matching tag filters", "tags", tags)
		return []sources.Row{}, nil
	}

	slog.Info("Found replication groups by tags", "count", len(resourceTagMappings))

	arnToTags := buildARNToTagsMap(resourceTagMappings)

	var replicationGroupARNs []string
	for _, mapping := range resourceTagMappings {
		replicationGroupARNs = append(replicationGroupARNs, aws.ToString(mapping.ResourceARN))
	}
	replicationGroupIDs := extractReplicationGroupIDsFromARNs(replicationGroupARNs)
	slog.Debug("Extracted replication group IDs", "ids", replicationGroupIDs)

	idToARN := make(map[string]string)
	for i, arn := range replicationGroupARNs {
		idToARN[replicationGroupIDs[i]] = arn
	}

	var result []sources.Row
	for _, id := range replicationGroupIDs {
		slog.Debug("Describing replication group", "replication_group_id", id)

		resp, err := p.elasticacheClient.DescribeReplicationGroups(ctx, &elasticache.DescribeReplicationGroupsInput{
			ReplicationGroupId: aws.String(id),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe replication group %s: %w", id, err)
		}

		if len(resp.ReplicationGroups) == 0 {
			slog.Warn("No replication group details found", "replication_group_id", id)
			continue
		}

		nodes := extractNodesFromReplicationGroups(resp.ReplicationGroups, id, arnToTags[idToARN[id]], len(result))
		slog.Debug("Extracted nodes from replication group",
			"replication_group_id", id,
			"nodes_count", len(nodes))
		result = append(result, nodes...)
	}

	slog.Info("ElastiCache Redis discovery completed", "total_nodes", len(result))
	return result, nil
}

// extractTagFilters extracts tag filters from the filters map
func extractTagFilters(filters map[string]interface{}) map[string]string {
	tags := make(map[string]string)
	if filters == nil {
		return tags
	}

	if tagsInterface, ok := filters["tags"]; ok {
		if tagsMap, ok := tagsInterface.(map[string]interface{}); ok {
			for k, v := range tagsMap {
				if strVal, ok := v.(string); ok {
					tags[k] = strVal
				}
			}
		}
	}

	return tags
}

// getReplicationGroupsByTags retrieves replication groups filtered by tags
func (p *Provider) getReplicationGroupsByTags(ctx context.Context, tags map[string]string) ([]taggingtypes.ResourceTagMapping, error) {
	tagFilters := buildTagFilters(tags)
	slog.Debug("Calling GetResources API",
		"resource_type", "elasticache:replicationgroup",
		"tag_filters_count", len(tagFilters))

	input := &resourcegroupstaggingapi.GetResourcesInput{
		ResourceTypeFilters: []string{"elasticache:replicationgroup"},
		TagFilters:          tagFilters,
	}

	var mappings []taggingtypes.ResourceTagMapping
	for {
		output, err := p.taggingClient.GetResources(ctx, input)
		if err != nil {
			slog.Error("GetResources API call failed", "error", err)
			return nil, fmt.Errorf("failed to get resources by tags: %w", err)
		}
		mappings = append(mappings, output.ResourceTagMappingList...)

		token := aws.ToString(output.PaginationToken)
		if token == "" {
			break
		}
		input.PaginationToken = aws.String(token)
	}

	slog.Debug("GetResources API call succeeded", "resources_count", len(mappings))
	return mappings, nil
}

// buildTagFilters converts a map of tags to AWS TagFilter array
func buildTagFilters(tags map[string]string) []taggingtypes.TagFilter {
	tagFilters := []taggingtypes.TagFilter{}
	for key, value := range tags {
		tagFilters = append(tagFilters, taggingtypes.TagFilter{
			Key:    aws.String(key),
			Values: []string{value},
		})
	}
	return tagFilters
}

// buildARNToTagsMap builds a map from ARN to tags
func buildARNToTagsMap(resourceTagMappings []taggingtypes.ResourceTagMapping) map[string]map[string]string {
	arnToTags := make(map[string]map[string]string)
	for _, mapping := range resourceTagMappings {
		tagsMap := make(map[string]string)
		for _, tag := range mapping.Tags {
			if tag.Key != nil && tag.Value != nil {
				tagsMap[*tag.Key] = *tag.Value
			}
		}
		arnToTags[aws.ToString(mapping.ResourceARN)] = tagsMap
	}
	return arnToTags
}

// extractReplicationGroupIDsFromARNs extracts replication group IDs from ARNs
func extractReplicationGroupIDsFromARNs(arns []string) []string {
	replicationGroupIDs := []string{}
	for _, arn := range arns {
		parts := strings.Split(arn, ":")
		replicationGroupIDs = append(replicationGroupIDs, parts[len(parts)-1])
	}
	return replicationGroupIDs
}

// extractNodesFromReplicationGroups turns every node with a read endpoint into a row
// offset is the number of rows already produced, so Line keeps counting across groups
func extractNodesFromReplicationGroups(replicationGroups []elasticachetypes.ReplicationGroup, clusterName string, tags map[string]string, offset int) []sources.Row {
	var result []sources.Row

	tagKeys := make([]string, 0, len(tags))
	for k := range tags {
		tagKeys = append(tagKeys, k)
	}
	sort.Strings(tagKeys)

	for _, rg := range replicationGroups {
		for _, ng := range rg.NodeGroups {
			shardName := aws.ToString(ng.NodeGroupId)

			for _, member := range ng.NodeGroupMembers {
				if member.ReadEndpoint == nil {
					slog.Warn("Node member has no read endpoint",
						"node_group_id", shardName,
						"cache_cluster_id", aws.ToString(member.CacheClusterId))
					continue
				}

				role := aws.ToString(member.CurrentRole)
				if role == "" {
					role = "replica"
				}
				host := aws.ToString(member.ReadEndpoint.Address)
				hostname := aws.ToString(member.CacheClusterId)
				if hostname == "" {
					hostname = strings.SplitN(host, ".", 2)[0]
				}

				header := append([]string{}, baseColumns...)
				fields := []string{
					hostname,
					host,
					strconv.Itoa(int(aws.ToInt32(member.ReadEndpoint.Port))),
					clusterName,
					shardName,
					role,
				}
				for _, k := range tagKeys {
					header = append(header, TagColumnPrefix+k)
					fields = append(fields, tags[k])
				}

				slog.Debug("Extracted node",
					"hostname", hostname,
					"host", host,
					"role", role,
					"shard", shardName)

				result = append(result, sources.NewRow(offset+len(result)+1, header, fields))
			}
		}
	}

	return result
}

// columnsOf returns the base columns followed by every tag column seen, sorted
func columnsOf(rows []sources.Row) []string {
	seen := make(map[string]bool)
	var tagColumns []string
	for _, row := range rows {
		for _, c := range row.Columns {
			if strings.HasPrefix(c, TagColumnPrefix) && !seen[c] {
				seen[c] = true
				tagColumns = append(tagColumns, c)
			}
		}
	}
	sort.Strings(tagColumns)
	return append(append([]string{}, baseColumns...), tagColumns...)
}
