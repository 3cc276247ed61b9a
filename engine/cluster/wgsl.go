package cluster

import _ "embed"

// PartitionSource holds the WGSL cluster-index derivation (slice, tile, index).
// Every GPU stage that needs a cluster index includes it; none re-derives it.
//
//go:embed assets/cluster_partition.wgsl
var PartitionSource string

// ClusterLightsSource is the light-assignment compute stage. Its entry point is
// ClusterLightsEntryPoint and it expects the cluster_config, frame_uniforms, light
// and cluster_partition includes to be registered with the shader pre-processor.
//
//go:embed assets/cluster_lights.wgsl
var ClusterLightsSource string

// ClusterLightsEntryPoint is the compute entry point in ClusterLightsSource.
const ClusterLightsEntryPoint = "clusterLights"
