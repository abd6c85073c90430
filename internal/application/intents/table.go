package intents

import "github.com/aescanero/datafabric/pkg/domain"

func ref(name, capabilityType string, mapping map[string]string) domain.ExecutionUnitRef {
	return domain.ExecutionUnitRef{Name: name, CapabilityType: capabilityType, FieldMapping: mapping}
}

var (
	dataWriter = ref("DataWriter", "data-writing", map[string]string{
		"staging_ref":        "write_input.staging_ref",
		"target_dataset_ref": "write_input.target_dataset_ref",
	})
	lineageEdgeWriter = ref("LineageEdgeWriter", "lineage-recording", map[string]string{
		"source_asset_ref": "edge_input.source_asset_ref",
		"target_asset_ref": "edge_input.target_asset_ref",
	})
	dataCommitter = ref("DataCommitter", "data-versioning", map[string]string{
		"dataset_ref":    "commit_input.dataset_ref",
		"commit_message": "commit_input.commit_message",
	})
)

// defaultTable maps each intent type to its units in dependency order.
// It is never mutated; readers receive copies.
var defaultTable = map[string][]domain.ExecutionUnitRef{
	"RegisterDataAsset": {
		ref("DataAssetRegistrar", "data-registration", map[string]string{
			"asset_declaration": "asset_declaration",
		}),
	},
	"IngestData": {
		ref("DataExtractor", "data-extraction", map[string]string{
			"source_connection_ref": "extraction_input.source_connection_ref",
			"source_query_or_path":  "extraction_input.source_query_or_path",
		}),
		dataWriter,
		lineageEdgeWriter,
	},
	"TransformData": {
		ref("TransformExecutor", "data-transformation", map[string]string{
			"input_data_ref":            "transform_input.input_data_ref",
			"transformation_definition": "transform_input.transformation_definition",
		}),
		dataWriter,
		lineageEdgeWriter,
	},
	"MaterializeFeatures": {
		ref("FeatureComputer", "feature-computation", map[string]string{
			"source_data_ref":        "compute_input.source_data_ref",
			"feature_definition_ref": "compute_input.feature_definition_ref",
		}),
		ref("FeatureStoreWriter", "feature-storage", map[string]string{
			"staging_ref":     "write_input.staging_ref",
			"feature_set_ref": "write_input.feature_set_ref",
		}),
	},
	"RetrieveFeatures": {
		ref("FeatureRetriever", "feature-retrieval", map[string]string{
			"feature_set_ref": "retrieve_input.feature_set_ref",
			"entity_keys":     "retrieve_input.entity_keys",
		}),
	},
	"ProfileData": {
		ref("DataProfiler", "data-profiling", map[string]string{
			"dataset_ref": "profile_input.dataset_ref",
			"sample_size": "profile_input.sample_size",
		}),
	},
	"CommitDataVersion": {
		dataCommitter,
	},
	"BranchDataset": {
		ref("BranchCreator", "data-branching", map[string]string{
			"dataset_ref":       "branch_input.dataset_ref",
			"source_commit_ref": "branch_input.source_commit_ref",
		}),
	},
	"MergeDataBranches": {
		ref("MergeComputer", "data-merging", map[string]string{
			"source_commit_ref": "merge_input.source_commit_ref",
			"target_commit_ref": "merge_input.target_commit_ref",
		}),
		dataCommitter,
	},
	"CreateLabelTask": {
		ref("LabelTaskCreator", "labeling-task", map[string]string{
			"source_dataset_ref": "task_input.source_dataset_ref",
			"label_schema_ref":   "task_input.label_schema_ref",
		}),
	},
	"TestConnection": {
		ref("ConnectionProbe", "connection-testing", map[string]string{
			"connection_ref":  "probe_input.connection_ref",
			"timeout_seconds": "probe_input.timeout_seconds",
		}),
	},
	"DiscoverSchema": {
		ref("SchemaIntrospector", "schema-discovery", map[string]string{
			"connection_ref": "introspection_input.connection_ref",
			"source_path":    "introspection_input.source_path",
		}),
	},
	"ReplicateData": {
		ref("DataReplicator", "data-replication", map[string]string{
			"source_location_ref": "replication_input.source_location_ref",
			"target_location_ref": "replication_input.target_location_ref",
		}),
	},
	"QueryLocality": {
		ref("LocalitySignalGenerator", "locality-signaling", map[string]string{
			"asset_ref": "asset_ref",
		}),
	},
	"ValidateSchema": {
		ref("SchemaValidator", "schema-validation", map[string]string{
			"dataset_ref":         "validation_input.dataset_ref",
			"expected_schema_ref": "validation_input.expected_schema_ref",
		}),
	},
}
