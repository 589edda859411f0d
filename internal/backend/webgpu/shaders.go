package webgpu

// matmulShader computes C = A @ B or C = A @ B^T.
// A is [M, K]; B is [K, N], or [N, K] when trans_b is 1; C is [M, N].
const matmulShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    M: u32,
    K: u32,
    N: u32,
    trans_b: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;
    if (row >= params.M || col >= params.N) {
        return;
    }

    var sum: f32 = 0.0;
    for (var k: u32 = 0u; k < params.K; k = k + 1u) {
        var b_idx = k * params.N + col;
        if (params.trans_b == 1u) {
            b_idx = col * params.K + k;
        }
        sum = sum + a[row * params.K + k] * b[b_idx];
    }
    result[row * params.N + col] = sum;
}
`
